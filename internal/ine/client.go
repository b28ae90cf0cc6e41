package ine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fjacquet/ine-csv/internal/etlerror"
	"fjacquet/ine-csv/internal/logging"

	"golang.org/x/net/html/charset"
)

// DefaultBaseURL is the public Tempus3 JSON endpoint.
const DefaultBaseURL = "https://servicios.ine.es/wstempus/js"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response ends up in the error.
const maxErrorBody = 512

// Client performs single GET requests against the API. No retries.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a client. A zero timeout uses DefaultTimeout and a nil
// logger discards output.
func NewClient(baseURL, language string, timeout time.Duration, logger logging.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if language == "" {
		language = "ES"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.ToUpper(language),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// URL builds the request URL after validating function, input and params.
func (c *Client) URL(fn Function, input string, params Params) (string, error) {
	if err := fn.validate(input); err != nil {
		return "", err
	}
	if err := params.Validate(); err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/%s/%s", c.baseURL, c.language, fn)
	if input = strings.Trim(strings.TrimSpace(input), "/"); input != "" {
		segments := strings.Split(input, "/")
		for i, s := range segments {
			segments[i] = url.PathEscape(s)
		}
		u += "/" + strings.Join(segments, "/")
	}
	if q := params.Encode(); q != "" {
		u += "?" + q
	}
	return u, nil
}

// Query performs one GET and returns the raw JSON body, transcoded to UTF-8.
func (c *Client) Query(ctx context.Context, fn Function, input string, params Params) (json.RawMessage, error) {
	u, err := c.URL(fn, input, params)
	if err != nil {
		return nil, err
	}

	log := c.logger.WithFields(
		logging.F(logging.FieldFunction, string(fn)),
		logging.F(logging.FieldURL, u),
	)
	log.Debug("Requesting INE API")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &etlerror.FetchError{URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &etlerror.FetchError{URL: u, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &etlerror.FetchError{
			URL:        u,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", http.StatusText(resp.StatusCode), strings.TrimSpace(string(snippet))),
		}
	}

	reader, err := decodeBody(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &etlerror.ParseError{Source: u, Reason: "unsupported response encoding", Err: err}
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &etlerror.FetchError{URL: u, Err: err}
	}

	log.Debug("Received INE response", logging.F(logging.FieldStatus, resp.StatusCode), logging.F(logging.FieldCount, len(body)))

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, &etlerror.ParseError{Source: u, Reason: "empty response body"}
	}
	if !json.Valid(body) {
		return nil, &etlerror.ParseError{Source: u, Reason: "response is not valid JSON"}
	}
	if msg, ok := apiStatus(body); ok {
		return nil, &etlerror.ParseError{Source: u, Reason: "API returned status", Err: errors.New(msg)}
	}
	return json.RawMessage(body), nil
}

// FetchSeries queries a series-returning function and decodes the payload.
// DATOS_SERIE answers with a single object, DATOS_TABLA with an array.
func (c *Client) FetchSeries(ctx context.Context, fn Function, input string, params Params) ([]Series, error) {
	if !fn.ReturnsSeries() {
		return nil, &etlerror.ValidationError{Field: "function", Value: string(fn), Reason: "does not return series"}
	}
	raw, err := c.Query(ctx, fn, input, params)
	if err != nil {
		return nil, err
	}
	source, _ := c.URL(fn, input, params)
	return DecodeSeries(source, raw)
}

// DecodeSeries decodes either an array of series or a single series object.
func DecodeSeries(source string, raw []byte) ([]Series, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, &etlerror.ParseError{Source: source, Reason: "empty payload"}
	}

	switch raw[0] {
	case '[':
		var series []Series
		if err := json.Unmarshal(raw, &series); err != nil {
			return nil, &etlerror.ParseError{Source: source, Reason: "decode series array", Err: err}
		}
		return series, nil
	case '{':
		var s Series
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &etlerror.ParseError{Source: source, Reason: "decode series object", Err: err}
		}
		if s.COD == "" && s.Nombre == "" {
			return nil, &etlerror.ParseError{Source: source, Reason: "object is not a series"}
		}
		return []Series{s}, nil
	default:
		return nil, &etlerror.ParseError{Source: source, Reason: "expected a JSON array or object"}
	}
}

// decodeBody transcodes the body when the Content-Type declares a charset
// other than UTF-8. Without a declaration JSON is UTF-8, so no sniffing.
func decodeBody(body io.Reader, contentType string) (io.Reader, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}
	label := strings.ToLower(strings.TrimSpace(params["charset"]))
	if label == "" || label == "utf-8" || label == "utf8" {
		return body, nil
	}
	return charset.NewReaderLabel(label, body)
}

// apiStatus detects the {"status": "..."} object the API sends instead of
// data when a request is rejected.
func apiStatus(body []byte) (string, bool) {
	if body[0] != '{' {
		return "", false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", false
	}
	status, ok := obj["status"]
	if !ok || len(obj) != 1 {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(status, &msg); err != nil {
		return string(status), true
	}
	return msg, true
}

package ine

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"fjacquet/ine-csv/internal/etlerror"
)

const dateLayout = "20060102"

var (
	tvPattern   = regexp.MustCompile(`^\d+:\d+$`)
	datePattern = regexp.MustCompile(`^(\d{8}):(\d{8})?$`)
)

// Params are the query-string options shared by the API functions.
// Zero values are omitted from the request.
type Params struct {
	// Nult limits the response to the last n periods.
	Nult int `yaml:"nult,omitempty" json:"nult,omitempty"`
	// Det is the detail level, 0 to 2.
	Det *int `yaml:"det,omitempty" json:"det,omitempty"`
	// Tip is the output flavour: A (friendly), M (metadata) or AM.
	Tip string `yaml:"tip,omitempty" json:"tip,omitempty"`
	// TV filters by variable_id:value_id, repeatable.
	TV []string `yaml:"tv,omitempty" json:"tv,omitempty"`
	// Date restricts the period, YYYYMMDD:YYYYMMDD with an optional end.
	Date string `yaml:"date,omitempty" json:"date,omitempty"`
	P    string `yaml:"p,omitempty" json:"p,omitempty"`
	G1   string `yaml:"g1,omitempty" json:"g1,omitempty"`
	G2   string `yaml:"g2,omitempty" json:"g2,omitempty"`
	G3   string `yaml:"g3,omitempty" json:"g3,omitempty"`
}

// Detail returns a pointer suitable for Params.Det.
func Detail(level int) *int {
	return &level
}

// Validate checks every set parameter against the values the API accepts.
func (p Params) Validate() error {
	if p.Nult < 0 {
		return &etlerror.ValidationError{Field: "nult", Value: strconv.Itoa(p.Nult), Reason: "must be at least 1"}
	}
	if p.Det != nil && (*p.Det < 0 || *p.Det > 2) {
		return &etlerror.ValidationError{Field: "det", Value: strconv.Itoa(*p.Det), Reason: "must be 0, 1 or 2"}
	}
	switch p.Tip {
	case "", "A", "M", "AM":
	default:
		return &etlerror.ValidationError{Field: "tip", Value: p.Tip, Reason: "must be A, M or AM"}
	}
	for _, tv := range p.TV {
		if !tvPattern.MatchString(tv) {
			return &etlerror.ValidationError{Field: "tv", Value: tv, Reason: "must be variable_id:value_id"}
		}
	}
	if p.Date != "" {
		if err := validateDateRange(p.Date); err != nil {
			return err
		}
	}
	return nil
}

func validateDateRange(s string) error {
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return &etlerror.ValidationError{Field: "date", Value: s, Reason: "must be YYYYMMDD:YYYYMMDD"}
	}
	start, err := time.Parse(dateLayout, m[1])
	if err != nil {
		return &etlerror.ValidationError{Field: "date", Value: s, Reason: "invalid start date"}
	}
	if m[2] == "" {
		return nil
	}
	end, err := time.Parse(dateLayout, m[2])
	if err != nil {
		return &etlerror.ValidationError{Field: "date", Value: s, Reason: "invalid end date"}
	}
	if end.Before(start) {
		return &etlerror.ValidationError{Field: "date", Value: s, Reason: "start is after end"}
	}
	return nil
}

// Values renders the set parameters as query values.
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.Nult > 0 {
		v.Set("nult", strconv.Itoa(p.Nult))
	}
	if p.Det != nil {
		v.Set("det", strconv.Itoa(*p.Det))
	}
	setIf(v, "tip", p.Tip)
	for _, tv := range p.TV {
		v.Add("tv", tv)
	}
	setIf(v, "date", p.Date)
	setIf(v, "p", p.P)
	setIf(v, "g1", p.G1)
	setIf(v, "g2", p.G2)
	setIf(v, "g3", p.G3)
	return v
}

// Encode returns the query string with keys sorted, so the same parameters
// always produce the same URL.
func (p Params) Encode() string {
	return p.Values().Encode()
}

func (p Params) String() string {
	return fmt.Sprintf("?%s", p.Encode())
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

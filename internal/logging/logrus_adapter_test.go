package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level logrus.Level) (Logger, *bytes.Buffer) {
	logrusLogger := logrus.New()
	var buf bytes.Buffer
	logrusLogger.SetOutput(&buf)
	logrusLogger.SetLevel(level)
	logrusLogger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return NewLogrusAdapterFromLogger(logrusLogger), &buf
}

func TestNewLogrusAdapter(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		format      string
		expectLevel logrus.Level
		expectJSON  bool
	}{
		{name: "debug text", level: "debug", format: "text", expectLevel: logrus.DebugLevel},
		{name: "info json", level: "info", format: "json", expectLevel: logrus.InfoLevel, expectJSON: true},
		{name: "upper case level", level: "WARN", format: "text", expectLevel: logrus.WarnLevel},
		{name: "upper case json", level: "error", format: "JSON", expectLevel: logrus.ErrorLevel, expectJSON: true},
		{name: "invalid level defaults to info", level: "loud", format: "text", expectLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogrusAdapter(tt.level, tt.format)
			adapter, ok := logger.(*LogrusAdapter)
			require.True(t, ok, "logger should be a LogrusAdapter")
			assert.Equal(t, tt.expectLevel, adapter.Level())

			if tt.expectJSON {
				_, ok := adapter.logger.Formatter.(*logrus.JSONFormatter)
				assert.True(t, ok, "formatter should be JSONFormatter")
			} else {
				_, ok := adapter.logger.Formatter.(*logrus.TextFormatter)
				assert.True(t, ok, "formatter should be TextFormatter")
			}
		})
	}
}

func TestNewLogrusAdapterFromLogger_Nil(t *testing.T) {
	logger := NewLogrusAdapterFromLogger(nil)
	adapter, ok := logger.(*LogrusAdapter)
	require.True(t, ok)
	assert.NotNil(t, adapter.logger)
}

func TestLogrusAdapter_LevelsAndFields(t *testing.T) {
	logger, buf := newBufferedLogger(logrus.DebugLevel)

	logger.Debug("fetching table", F(FieldTableID, "21475"))
	logger.Info("wrote file", F(FieldOutputFile, "out.csv"))
	logger.Warn("label mismatch", F(FieldLabel, "Total"))
	logger.Error("fetch failed", F(FieldStatus, 500))

	output := buf.String()
	for _, want := range []string{"fetching table", "table_id=21475", "wrote file", "output_file=out.csv",
		"label mismatch", "label=Total", "fetch failed", "status=500"} {
		assert.Contains(t, output, want)
	}
}

func TestLogrusAdapter_LevelFiltering(t *testing.T) {
	logger, buf := newBufferedLogger(logrus.WarnLevel)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogrusAdapter_ChainedCalls(t *testing.T) {
	logger, buf := newBufferedLogger(logrus.InfoLevel)

	logger.
		WithField(FieldDataset, "divorcios").
		WithFields(F(FieldStage, "fetch")).
		WithError(errors.New("boom")).
		Error("stage failed")

	output := buf.String()
	assert.Contains(t, output, "stage failed")
	assert.Contains(t, output, "dataset=divorcios")
	assert.Contains(t, output, "stage=fetch")
	assert.Contains(t, output, "boom")
}

func TestLogrusAdapter_DerivedFieldsStayLocal(t *testing.T) {
	logger, buf := newBufferedLogger(logrus.InfoLevel)

	logger.WithField(FieldDataset, "empleo").Info("derived")
	logger.Info("parent")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "dataset=empleo")
	assert.NotContains(t, string(lines[1]), "dataset=")
}

func TestFormatterFor(t *testing.T) {
	_, ok := formatterFor("Json").(*logrus.JSONFormatter)
	assert.True(t, ok)
	text, ok := formatterFor("xml").(*logrus.TextFormatter)
	require.True(t, ok)
	assert.True(t, text.FullTimestamp)
}

func TestConvertFields(t *testing.T) {
	logrusFields := convertFields([]Field{F("a", "x"), F("b", 42), F("c", true)})

	assert.Len(t, logrusFields, 3)
	assert.Equal(t, "x", logrusFields["a"])
	assert.Equal(t, 42, logrusFields["b"])
	assert.Equal(t, true, logrusFields["c"])
	assert.Empty(t, convertFields(nil))
}

func TestNewDiscardLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewDiscardLogger().WithField("k", "v").Info("nothing to see")
	})
}

func TestMockLogger_SharedSink(t *testing.T) {
	mock := NewMockLogger()
	child := mock.WithFields(F(FieldDataset, "parejas"))
	child.WithError(errors.New("bad")).Warn("mismatch", F(FieldLabel, "x"))
	mock.Info("done")

	entries := mock.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.EqualError(t, entries[0].Error, "bad")

	ds, ok := entries[0].FieldValue(FieldDataset)
	require.True(t, ok)
	assert.Equal(t, "parejas", ds)

	assert.True(t, mock.HasEntry("INFO", "done"))
	assert.Len(t, mock.GetEntriesByLevel("WARN"), 1)
}

func TestInterfaces(t *testing.T) {
	var _ Logger = (*LogrusAdapter)(nil)
	var _ Logger = (*MockLogger)(nil)
}

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: " error ", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoggerWritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := newLogger(Config{Level: "warn"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("dropped")
	logger.Warn("kept", "track", "dc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "dc", line["track"])
}

func TestLoggerTeesToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	logger, closer, err := newLogger(Config{Level: "info", File: path}, &buf)
	require.NoError(t, err)

	logger.Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(Config{Level: "verbose"})
	assert.Error(t, err)
}

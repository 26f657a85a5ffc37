package stdlogger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/logger/adapter/stdlogger"
)

type line struct {
	Level     string `json:"level"`
	Component string `json:"component"`
	Message   string `json:"message"`
}

func capture(t *testing.T, level zerolog.Level) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer

	previousLogger := log.Logger
	previousLevel := zerolog.GlobalLevel()

	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(level)

	t.Cleanup(func() {
		log.Logger = previousLogger
		zerolog.SetGlobalLevel(previousLevel)
	})

	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []line {
	t.Helper()

	var out []line

	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}

		var l line
		require.NoError(t, json.Unmarshal([]byte(raw), &l))
		out = append(out, l)
	}

	return out
}

func TestLevels(t *testing.T) {
	buf := capture(t, zerolog.InfoLevel)

	l := stdlogger.New("gorm")
	l.Debugf("stdlogger %s", "debug")
	l.Infof("stdlogger %s", "info")
	l.Warningf("stdlogger %s", "warning")
	l.Errorf("stdlogger %s", "error")

	got := lines(t, buf)
	require.Len(t, got, 3, "debug must be filtered at info level")

	assert.Equal(t, "info", got[0].Level)
	assert.Equal(t, "warn", got[1].Level)
	assert.Equal(t, "error", got[2].Level)

	for _, g := range got {
		assert.Equal(t, "gorm", g.Component)
	}
}

func TestPrintfDerivesLevel(t *testing.T) {
	tests := []struct {
		name   string
		format string
		want   string
	}{
		{name: "trace line", format: "%s\n[%.3fms] [rows:%v] %s", want: "debug"},
		{name: "slow query", format: "%s SLOW SQL [%.3fms] [rows:%v] %s", want: "warn"},
		{name: "query error", format: "%s [error] record failed\n[%.3fms] [rows:%v] %s", want: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, zerolog.TraceLevel)

			stdlogger.New().Printf(tt.format, "user.go:12", 1.5, 1, "SELECT 1")

			got := lines(t, buf)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Level)
			assert.Equal(t, "std", got[0].Component)
		})
	}
}

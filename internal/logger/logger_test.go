package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_JSONEntry(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(LevelInfo, FormatJSON, &buf)
	require.NoError(t, err)

	log.Info("search finished", zap.String("query", "tosca"), zap.Int("events", 3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "search finished", entry["message"])
	assert.Equal(t, "tosca", entry["query"])
	assert.EqualValues(t, 3, entry["events"])
	assert.NotEmpty(t, entry["timestamp"])
}

func TestNew_LevelThreshold(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		logFn  func(*zap.Logger)
		logged bool
	}{
		{"debug below info", LevelInfo, func(l *zap.Logger) { l.Debug("x") }, false},
		{"info at info", LevelInfo, func(l *zap.Logger) { l.Info("x") }, true},
		{"info below warn", LevelWarn, func(l *zap.Logger) { l.Info("x") }, false},
		{"error above warn", LevelWarn, func(l *zap.Logger) { l.Error("x") }, true},
		{"debug at debug", LevelDebug, func(l *zap.Logger) { l.Debug("x") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := New(tt.level, FormatJSON, &buf)
			require.NoError(t, err)

			tt.logFn(log)
			assert.Equal(t, tt.logged, buf.Len() > 0)
		})
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(LevelInfo, FormatConsole, &buf)
	require.NoError(t, err)

	log.Info("hello")
	assert.True(t, strings.Contains(buf.String(), "hello"))
	assert.False(t, strings.HasPrefix(buf.String(), "{"))
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("verbose", FormatJSON, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New(LevelInfo, "xml", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{" warn ", LevelWarn, false},
		{"error", LevelError, false},
		{"trace", "", true},
		{"", "", true},
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

func TestPackageLevelFunctions(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := L()
	SetDefault(zap.New(core))
	defer SetDefault(prev)

	Debug("debug msg", zap.String("k", "v"))
	Info("info msg")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "v", entries[0].ContextMap()["k"])
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
}

func TestSetDefault_Nil(t *testing.T) {
	prev := L()
	defer SetDefault(prev)

	SetDefault(nil)
	assert.NotNil(t, L())
	Info("discarded")
}

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"trade-journal-go/internal/config"
)

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		name      string
		cfg       config.Logger
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{name: "JSON debug", cfg: config.Logger{Level: "debug", Format: "json"}, wantLevel: zapcore.DebugLevel},
		{name: "Console warn", cfg: config.Logger{Level: "warn", Format: "console"}, wantLevel: zapcore.WarnLevel},
		{name: "Empty level defaults to info", cfg: config.Logger{}, wantLevel: zapcore.InfoLevel},
		{name: "Unknown level", cfg: config.Logger{Level: "loud"}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			log, err := NewLogger(tc.cfg)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, log)
				return
			}
			assert.NoError(t, err)
			assert.True(t, log.Core().Enabled(tc.wantLevel))
			assert.False(t, log.Core().Enabled(tc.wantLevel-1))
		})
	}
}

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/David-Botos/sales-ingress/pkg/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{name: "json info", cfg: config.LogConfig{Level: "info", Format: "json"}, wantLevel: zapcore.InfoLevel},
		{name: "console debug", cfg: config.LogConfig{Level: "debug", Format: "console"}, wantLevel: zapcore.DebugLevel},
		{name: "bad level", cfg: config.LogConfig{Level: "loud", Format: "json"}, wantErr: true},
		{name: "bad format", cfg: config.LogConfig{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := newLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.wantLevel))
			assert.False(t, logger.Core().Enabled(tt.wantLevel-1))
		})
	}
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "list-tables", "schedule", "version"}, names)

	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	require.NoError(t, run.ParseFlags([]string{"--only", "users,cards"}))
	only, err := run.Flags().GetStringSlice("only")
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "cards"}, only)
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "salesetl dev\n", out.String())
}

func TestRunCommand_MissingConfigFile(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"run", "--config", "does-not-exist.yaml"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist.yaml")
}

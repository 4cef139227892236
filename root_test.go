package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildLogger_Default(t *testing.T) {
	logger := buildLogger(CLIFlags{})

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
}

func TestBuildLogger_Verbose(t *testing.T) {
	logger := buildLogger(CLIFlags{Verbose: true})

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_Debug(t *testing.T) {
	logger := buildLogger(CLIFlags{Debug: true})

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_Quiet(t *testing.T) {
	logger := buildLogger(CLIFlags{Quiet: true})

	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelError))
}

func TestBuildLogger_DebugWinsOverVerboseAndQuiet(t *testing.T) {
	logger := buildLogger(CLIFlags{Verbose: true, Debug: true, Quiet: true})

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestCliContextFrom_NilWhenAbsent(t *testing.T) {
	assert.Nil(t, cliContextFrom(context.Background()))
}

func TestMustCLIContext_PanicsWhenAbsent(t *testing.T) {
	assert.Panics(t, func() {
		mustCLIContext(context.Background())
	})
}

func TestCliContextFrom_RoundTrips(t *testing.T) {
	cc := &CLIContext{DataDir: "/data"}
	ctx := context.WithValue(context.Background(), cliContextKey{}, cc)

	got := cliContextFrom(ctx)
	assert.Same(t, cc, got)
	assert.Same(t, cc, mustCLIContext(ctx))
}

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()

	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"run", "albums", "sync", "status", "config", "login"} {
		assert.True(t, names[want], "expected subcommand %q to be registered", want)
	}
}

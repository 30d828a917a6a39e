package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/katalvlaran/xtalred/config"
)

// TestNewLogger verifies level parsing and the verbose override.
func TestNewLogger(t *testing.T) {
	l, err := newLogger(config.LogConfig{Level: "warn", Format: "json"}, false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = newLogger(config.LogConfig{Level: "warn", Format: "console"}, true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger(config.LogConfig{Level: "loud"}, false)
	assert.Error(t, err)
}

// TestWriteFile verifies contents are written and writer errors carry the
// path.
func TestWriteFile(t *testing.T) {
	logger = zaptest.NewLogger(t)
	path := filepath.Join(t.TempDir(), "out.txt")

	require.NoError(t, writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "   1   0   0\n")
		return err
	}))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "   1   0   0\n", string(got))

	boom := errors.New("boom")
	err = writeFile(path, func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), path)
}

// TestRootCommand_Help verifies every subcommand is registered.
func TestRootCommand_Help(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"--help"})
	require.NoError(t, rootCmd.Execute())

	names := []string{
		"ingest", "split", "normalize", "absorption", "extinction", "calibrate",
		"hkl", "summary", "worklist", "new-run", "runs", "partial", "reconcile",
	}
	for _, name := range names {
		assert.True(t, strings.Contains(buf.String(), name), name)
	}
}

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesConsoleAndFiles(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, closeLogs, err := New(Options{Dir: dir, Console: &console})
	require.NoError(t, err)

	logger.Debug("hidden at info")
	logger.Info("fetched responses", zap.String("url", "getit.library.nyu.edu/resolve?id=1"))
	logger.Error("skipping test case", zap.String("url", "getit.library.nyu.edu/resolve?id=2"))
	closeLogs()

	assert.NotContains(t, console.String(), "hidden at info")
	assert.Contains(t, console.String(), "info\tfetched responses")
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\tinfo`, console.String())

	combined, err := os.ReadFile(filepath.Join(dir, CombinedLog))
	require.NoError(t, err)
	assert.Contains(t, string(combined), "fetched responses")
	assert.Contains(t, string(combined), "skipping test case")

	errs, err := os.ReadFile(filepath.Join(dir, ErrorLog))
	require.NoError(t, err)
	assert.NotContains(t, string(errs), "fetched responses")
	assert.Contains(t, string(errs), `"url": "getit.library.nyu.edu/resolve?id=2"`)
}

func TestNewDebugLevel(t *testing.T) {
	var console bytes.Buffer
	logger, closeLogs, err := New(Options{Level: "debug", Console: &console})
	require.NoError(t, err)

	logger.Debug("captured response")
	closeLogs()
	assert.Contains(t, console.String(), "debug\tcaptured response")
}

func TestNewInvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.ErrorContains(t, err, "invalid log level")
}

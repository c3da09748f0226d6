package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLoggerCapturesEntries(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	Infow("plate analyzed", "tiles", 96)
	Debugf("[Grid] %d columns", 12)

	require.Equal(t, 2, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "plate analyzed", entry.Message)
	assert.Equal(t, int64(96), entry.ContextMap()["tiles"])
	assert.Equal(t, "[Grid] 12 columns", logs.All()[1].Message)
}

func TestWarnAndErrorLevels(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	Infow("dropped")
	Warnw("skipping file", "path", "notes.txt")
	Errorw("store failed", "plate", "p1")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zap.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "notes.txt", logs.All()[0].ContextMap()["path"])
	assert.Equal(t, zap.ErrorLevel, logs.All()[1].Level)
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.log")
	require.NoError(t, Init(Options{File: path}))

	Infof("[Scan] %s", "plate-1")
	Sync()
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[Scan] plate-1")
}

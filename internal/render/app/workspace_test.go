package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/domain"
	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/pkg/logger"
)

func TestMain(m *testing.M) {
	logDir, err := os.MkdirTemp("", "render-test-log")
	if err != nil {
		panic(err)
	}
	logger.Log = logger.Initialize("render_service_test", logDir)

	code := m.Run()
	os.RemoveAll(logDir)
	os.Exit(code)
}

func TestWorkspaceAcquireCreatesTree(t *testing.T) {
	m := NewWorkspaceManager(t.TempDir())

	ws, err := m.Acquire("job-1")
	assert.NoError(t, err)
	assert.DirExists(t, ws.Root)
	assert.DirExists(t, ws.SrcDir)
	assert.DirExists(t, ws.FrameDir)
	assert.Equal(t, filepath.Join(ws.Root, "out.mp4"), ws.OutputFile)
}

func TestWorkspaceReleaseRemovesTree(t *testing.T) {
	m := NewWorkspaceManager(t.TempDir())

	ws, err := m.Acquire("job-1")
	assert.NoError(t, err)

	// partially consumed tree: output written, frame dir already gone
	assert.NoError(t, os.WriteFile(ws.OutputFile, []byte("x"), 0644))
	assert.NoError(t, os.RemoveAll(ws.FrameDir))

	assert.NoError(t, m.Release(ws))
	assert.NoDirExists(t, ws.Root)
}

func TestWorkspaceReleaseIdempotent(t *testing.T) {
	m := NewWorkspaceManager(t.TempDir())

	ws, err := m.Acquire("job-1")
	assert.NoError(t, err)

	assert.NoError(t, m.Release(ws))
	assert.NoError(t, m.Release(ws))
}

func TestWorkspaceReleaseMissingPath(t *testing.T) {
	m := NewWorkspaceManager(t.TempDir())

	assert.NoError(t, m.Release(nil))
	assert.NoError(t, m.Release(&domain.Workspace{Root: filepath.Join(t.TempDir(), "no-such-job")}))
}

func TestWorkspaceIsolationPerJob(t *testing.T) {
	m := NewWorkspaceManager(t.TempDir())

	a, err := m.Acquire("job-a")
	assert.NoError(t, err)
	b, err := m.Acquire("job-b")
	assert.NoError(t, err)

	assert.NotEqual(t, a.Root, b.Root)

	// releasing one job leaves the other untouched
	assert.NoError(t, m.Release(a))
	assert.DirExists(t, b.Root)
}

package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/domain"
	errprocess "github.com/jacoboliverbusiness-stack/endless-ai-render-service/pkg/err"
)

// WorkspaceManager allocate and reclaim the per-job scratch tree
type WorkspaceManager interface {
	Acquire(jobID string) (*domain.Workspace, error)
	Release(ws *domain.Workspace) error
}

type workspaceManager struct {
	scratchDir string
}

// NewWorkspaceManager create a WorkspaceManager rooted at scratchDir
func NewWorkspaceManager(scratchDir string) WorkspaceManager {
	return &workspaceManager{scratchDir: scratchDir}
}

// Acquire build the full directory tree for one job
func (m *workspaceManager) Acquire(jobID string) (*domain.Workspace, error) {
	root := filepath.Join(m.scratchDir, jobID)
	ws := &domain.Workspace{
		Root:       root,
		SrcDir:     filepath.Join(root, "src"),
		FrameDir:   filepath.Join(root, "frames"),
		OutputFile: filepath.Join(root, "out.mp4"),
	}
	for _, dir := range []string{ws.Root, ws.SrcDir, ws.FrameDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			// partial trees are reclaimed by the caller's Release
			return ws, errprocess.Set(fmt.Sprintf("jobID[%s] create workspace dir failed : %v", jobID, err))
		}
	}
	return ws, nil
}

// Release remove the whole tree. Idempotent, a missing or partially
// consumed tree is not an error.
func (m *workspaceManager) Release(ws *domain.Workspace) error {
	if ws == nil || ws.Root == "" {
		return nil
	}
	return os.RemoveAll(ws.Root)
}

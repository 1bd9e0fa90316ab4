package domain

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// JobStage definition job stage
type JobStage string

const (
	//StageCreated job accepted, nothing allocated yet
	StageCreated JobStage = "created"
	//StageWorkspaceReady scratch tree exists
	StageWorkspaceReady JobStage = "workspace_ready"
	//StageRendering backend is producing frames or an encoded file
	StageRendering JobStage = "rendering"
	//StageEncoding ffmpeg is turning frames into a container
	StageEncoding JobStage = "encoding"
	//StageUploading artifact is moving to durable storage
	StageUploading JobStage = "uploading"
	//StageSucceeded terminal, artifact URL resolved
	StageSucceeded JobStage = "succeeded"
	//StageFailed terminal, reached from any non-terminal stage
	StageFailed JobStage = "failed"
)

// FramePattern zero-padded frame file name pattern. Lexical and numeric
// ordering must coincide, the encoder consumes frames by this pattern.
const FramePattern = "frame-%05d.png"

// FrameFileName frame file name for one index
func FrameFileName(index int) string {
	return fmt.Sprintf(FramePattern, index)
}

// Workspace scratch directory tree owned by exactly one job
type Workspace struct {
	Root       string
	SrcDir     string
	FrameDir   string
	OutputFile string
}

// Job one end-to-end execution of the render pipeline
type Job struct {
	ID        string
	Workspace *Workspace
	Stage     JobStage
	Progress  float64
	CreatedAt time.Time
}

// NewJob derive a job from an accepted request. The ID doubles as the
// workspace directory name, so it must stay unique even for concurrent
// submissions of the same project.
func NewJob(projectID string) *Job {
	now := time.Now()
	return &Job{
		ID:        fmt.Sprintf("%s-%d-%s", projectID, now.UnixNano(), uuid.NewString()[:8]),
		Stage:     StageCreated,
		CreatedAt: now,
	}
}

// SetStage move the job forward, terminal stages stick
func (j *Job) SetStage(s JobStage) {
	if j.Stage == StageSucceeded || j.Stage == StageFailed {
		return
	}
	j.Stage = s
}

// Observe record a progress fraction, kept monotone non-decreasing in [0,1]
func (j *Job) Observe(p float64) {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	if p > j.Progress {
		j.Progress = p
	}
}

// ArtifactKey object storage key for the finished video
func (j *Job) ArtifactKey(userID, projectID string) string {
	return filepath.ToSlash(filepath.Join(userID, projectID, fmt.Sprintf("video-%d.mp4", j.CreatedAt.Unix())))
}

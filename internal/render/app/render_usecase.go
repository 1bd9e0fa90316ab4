package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/domain"
	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/repository"
	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/pkg/logger"
)

// Stage progress weights. Rendering dominates the wall clock on both
// engines, encode and upload split the remainder.
const (
	renderWeight = 0.7
	encodeWeight = 0.2
)

// RenderUseCase run one render job from request to artifact URL
type RenderUseCase interface {
	Render(ctx context.Context, req *domain.RenderRequest) (*domain.RenderResponse, error)
}

type renderUseCase struct {
	workspaces WorkspaceManager
	backends   map[domain.EngineType]RenderBackend
	encoder    Encoder
	artifacts  repository.ArtifactRepo
	admission  *semaphore.Weighted
}

// NewRenderUseCase create a new RenderUseCase. maxConcurrentJobs bounds how
// many pipelines (and so browser processes and scratch trees) run at once.
func NewRenderUseCase(
	workspaces WorkspaceManager,
	backends map[domain.EngineType]RenderBackend,
	encoder Encoder,
	artifacts repository.ArtifactRepo,
	maxConcurrentJobs int64,
) RenderUseCase {
	if maxConcurrentJobs < 1 {
		maxConcurrentJobs = 1
	}
	return &renderUseCase{
		workspaces: workspaces,
		backends:   backends,
		encoder:    encoder,
		artifacts:  artifacts,
		admission:  semaphore.NewWeighted(maxConcurrentJobs),
	}
}

// Render drive the job state machine:
// Created → WorkspaceReady → Rendering → Encoding (capture only) →
// Uploading → Succeeded, or Failed from any stage. Transitions are strictly
// forward, no stage is retried, and the workspace is released on every exit
// path once it exists.
func (u *renderUseCase) Render(ctx context.Context, req *domain.RenderRequest) (*domain.RenderResponse, error) {
	req.Normalize()
	if jerr := req.Validate(); jerr != nil {
		return nil, jerr
	}
	backend, ok := u.backends[req.Engine]
	if !ok {
		return nil, domain.NewJobError(domain.ErrInvalidRequest, fmt.Sprintf("engine [%s] is not configured", req.Engine))
	}

	// admission before any resource allocation
	if err := u.admission.Acquire(ctx, 1); err != nil {
		return nil, domain.NewJobError(domain.ErrInternal, fmt.Sprintf("admission wait aborted: %v", err))
	}
	defer u.admission.Release(1)

	job := domain.NewJob(req.ProjectID)
	logger.Log.Info("render job accepted",
		zap.String("job_id", job.ID),
		zap.String("engine", string(req.Engine)),
	)

	ws, err := u.workspaces.Acquire(job.ID)
	if err != nil {
		// Acquire hands back the partial tree so it can still be reclaimed
		u.releaseWorkspace(job.ID, ws)
		return nil, u.fail(job, domain.ErrWorkspace, fmt.Sprintf("create workspace failed: %v", err))
	}
	job.Workspace = ws
	job.SetStage(domain.StageWorkspaceReady)
	defer u.releaseWorkspace(job.ID, ws)

	job.SetStage(domain.StageRendering)
	renderSpan := renderWeight
	if req.Engine == domain.EngineComposition {
		renderSpan = renderWeight + encodeWeight
	}
	out, err := backend.Render(ctx, job, req, func(p float64) {
		job.Observe(p * renderSpan)
	})
	if err != nil {
		return nil, u.fail(job, domain.ErrRender, fmt.Sprintf("render failed: %v", err))
	}

	encodedFile := out.EncodedFile
	if out.NeedsEncode {
		job.SetStage(domain.StageEncoding)
		if err := u.encoder.Encode(ctx, out.FrameDir, req.FPS, ws.OutputFile); err != nil {
			return nil, u.fail(job, domain.ErrEncode, fmt.Sprintf("encode failed: %v", err))
		}
		encodedFile = ws.OutputFile
	}
	job.Observe(renderWeight + encodeWeight)

	job.SetStage(domain.StageUploading)
	key := job.ArtifactKey(req.UserID, req.ProjectID)
	videoURL, err := u.artifacts.Upload(ctx, encodedFile, key, "video/mp4")
	if err != nil {
		return nil, u.fail(job, domain.ErrUpload, fmt.Sprintf("upload failed: %v", err))
	}

	job.Observe(1)
	job.SetStage(domain.StageSucceeded)
	logger.Log.Info("render job succeeded",
		zap.String("job_id", job.ID),
		zap.String("video_url", videoURL),
	)
	return &domain.RenderResponse{Success: true, VideoURL: videoURL}, nil
}

// fail log the stage failure with job context and move the job to Failed
func (u *renderUseCase) fail(job *domain.Job, kind domain.ErrKind, msg string) *domain.JobError {
	logger.Log.Error("render job failed",
		zap.String("job_id", job.ID),
		zap.String("stage", string(job.Stage)),
		zap.String("kind", string(kind)),
		zap.String("err", msg),
	)
	job.SetStage(domain.StageFailed)
	return domain.NewJobError(kind, msg)
}

// releaseWorkspace best-effort teardown, a failure here is logged but never
// changes the already-decided job outcome
func (u *renderUseCase) releaseWorkspace(jobID string, ws *domain.Workspace) {
	if ws == nil {
		return
	}
	if err := u.workspaces.Release(ws); err != nil {
		logger.Log.Warn(fmt.Sprintf("jobID[%s] workspace release failed : %v", jobID, err))
	}
}

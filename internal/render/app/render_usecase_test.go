package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/domain"
)

// funcBackend RenderBackend backed by a plain function
type funcBackend struct {
	fn func(ctx context.Context, job *domain.Job, req *domain.RenderRequest, onProgress func(float64)) (*domain.RenderOutput, error)
}

func (b *funcBackend) Render(ctx context.Context, job *domain.Job, req *domain.RenderRequest, onProgress func(float64)) (*domain.RenderOutput, error) {
	return b.fn(ctx, job, req, onProgress)
}

// funcEncoder Encoder backed by a plain function
type funcEncoder struct {
	fn func(ctx context.Context, frameDir string, fps int, outputPath string) error
}

func (e *funcEncoder) Encode(ctx context.Context, frameDir string, fps int, outputPath string) error {
	return e.fn(ctx, frameDir, fps, outputPath)
}

// MockArtifactRepo mock the uploader
type MockArtifactRepo struct {
	mock.Mock

	mu   sync.Mutex
	keys []string
}

func (m *MockArtifactRepo) Upload(ctx context.Context, localPath, objectKey, contentType string) (string, error) {
	m.mu.Lock()
	m.keys = append(m.keys, objectKey)
	m.mu.Unlock()

	args := m.Called(ctx, localPath, objectKey, contentType)
	return args.String(0), args.Error(1)
}

// compositionFake backend that behaves like the composition engine: writes
// the encoded file directly, no encode pass needed
func compositionFake() RenderBackend {
	return &funcBackend{fn: func(ctx context.Context, job *domain.Job, req *domain.RenderRequest, onProgress func(float64)) (*domain.RenderOutput, error) {
		if err := os.WriteFile(job.Workspace.OutputFile, []byte("mp4"), 0644); err != nil {
			return nil, err
		}
		onProgress(1)
		return &domain.RenderOutput{EncodedFile: job.Workspace.OutputFile, NeedsEncode: false}, nil
	}}
}

// captureFake backend that writes the full frame sequence and asks for an
// encode pass
func captureFake() RenderBackend {
	return &funcBackend{fn: func(ctx context.Context, job *domain.Job, req *domain.RenderRequest, onProgress func(float64)) (*domain.RenderOutput, error) {
		for i := 0; i < req.DurationInFrames; i++ {
			name := filepath.Join(job.Workspace.FrameDir, domain.FrameFileName(i))
			if err := os.WriteFile(name, []byte("png"), 0644); err != nil {
				return nil, err
			}
		}
		onProgress(1)
		return &domain.RenderOutput{FrameDir: job.Workspace.FrameDir, NeedsEncode: true}, nil
	}}
}

func passEncoder() Encoder {
	return &funcEncoder{fn: func(ctx context.Context, frameDir string, fps int, outputPath string) error {
		return os.WriteFile(outputPath, []byte("mp4"), 0644)
	}}
}

func newTestUsecase(scratch string, backends map[domain.EngineType]RenderBackend, enc Encoder, artifacts *MockArtifactRepo) RenderUseCase {
	return NewRenderUseCase(NewWorkspaceManager(scratch), backends, enc, artifacts, 4)
}

func assertScratchEmpty(t *testing.T, scratch string) {
	t.Helper()
	entries, err := os.ReadDir(scratch)
	assert.NoError(t, err)
	assert.Empty(t, entries, "workspace leaked under scratch root")
}

func TestRenderCompositionSuccess(t *testing.T) {
	scratch := t.TempDir()
	artifacts := new(MockArtifactRepo)
	artifacts.On("Upload", mock.Anything, mock.Anything, mock.Anything, "video/mp4").
		Return("http://127.0.0.1:9000/videos/user1/proj1/video-1.mp4", nil)

	u := newTestUsecase(scratch, map[domain.EngineType]RenderBackend{
		domain.EngineComposition: compositionFake(),
	}, passEncoder(), artifacts)

	res, err := u.Render(context.Background(), &domain.RenderRequest{
		ProjectID:        "proj1",
		UserID:           "user1",
		SourceCode:       "export default () => null;",
		FPS:              30,
		DurationInFrames: 60,
		Width:            640,
		Height:           480,
	})
	assert.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.VideoURL, "proj1")
	assert.Contains(t, res.VideoURL, "user1")

	// the storage key is namespaced by user then project
	assert.Regexp(t, `^user1/proj1/video-\d+\.mp4$`, artifacts.keys[0])
	assertScratchEmpty(t, scratch)
}

func TestRenderCaptureRunsEncoderAfterLastFrame(t *testing.T) {
	scratch := t.TempDir()
	artifacts := new(MockArtifactRepo)
	artifacts.On("Upload", mock.Anything, mock.Anything, mock.Anything, "video/mp4").
		Return("http://127.0.0.1:9000/videos/k", nil)

	const total = 24
	encoded := false
	enc := &funcEncoder{fn: func(ctx context.Context, frameDir string, fps int, outputPath string) error {
		// the strict sequential contract: every frame, including the last,
		// must already exist when encoding starts
		for i := 0; i < total; i++ {
			_, err := os.Stat(filepath.Join(frameDir, domain.FrameFileName(i)))
			assert.NoError(t, err)
		}
		encoded = true
		return os.WriteFile(outputPath, []byte("mp4"), 0644)
	}}

	u := newTestUsecase(scratch, map[domain.EngineType]RenderBackend{
		domain.EngineCapture: captureFake(),
	}, enc, artifacts)

	res, err := u.Render(context.Background(), &domain.RenderRequest{
		ProjectID:        "proj1",
		UserID:           "user1",
		SourceCode:       "tick()",
		Engine:           domain.EngineCapture,
		FPS:              30,
		DurationInFrames: total,
		Width:            320,
		Height:           240,
	})
	assert.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, encoded)
	assertScratchEmpty(t, scratch)
}

func TestRenderEncoderFailure(t *testing.T) {
	scratch := t.TempDir()
	artifacts := new(MockArtifactRepo)
	enc := &funcEncoder{fn: func(ctx context.Context, frameDir string, fps int, outputPath string) error {
		return errors.New("exit status 1")
	}}

	u := newTestUsecase(scratch, map[domain.EngineType]RenderBackend{
		domain.EngineCapture: captureFake(),
	}, enc, artifacts)

	_, err := u.Render(context.Background(), &domain.RenderRequest{
		ProjectID:        "proj1",
		UserID:           "user1",
		SourceCode:       "tick()",
		Engine:           domain.EngineCapture,
		FPS:              30,
		DurationInFrames: 10,
		Width:            320,
		Height:           240,
	})
	assert.Error(t, err)
	assert.Equal(t, domain.ErrEncode, domain.AsJobError(err).Kind)

	artifacts.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assertScratchEmpty(t, scratch)
}

func TestRenderBackendFailureReleasesWorkspace(t *testing.T) {
	scratch := t.TempDir()
	artifacts := new(MockArtifactRepo)
	backend := &funcBackend{fn: func(ctx context.Context, job *domain.Job, req *domain.RenderRequest, onProgress func(float64)) (*domain.RenderOutput, error) {
		// leave half-written scratch files behind, teardown must still work
		_ = os.WriteFile(filepath.Join(job.Workspace.SrcDir, "partial.jsx"), []byte("x"), 0644)
		return nil, errors.New("bundle failed")
	}}

	u := newTestUsecase(scratch, map[domain.EngineType]RenderBackend{
		domain.EngineComposition: backend,
	}, passEncoder(), artifacts)

	_, err := u.Render(context.Background(), &domain.RenderRequest{
		ProjectID:  "proj1",
		UserID:     "user1",
		SourceCode: "broken",
	})
	assert.Error(t, err)
	assert.Equal(t, domain.ErrRender, domain.AsJobError(err).Kind)
	assertScratchEmpty(t, scratch)
}

func TestRenderUploadFailure(t *testing.T) {
	scratch := t.TempDir()
	artifacts := new(MockArtifactRepo)
	artifacts.On("Upload", mock.Anything, mock.Anything, mock.Anything, "video/mp4").
		Return("", errors.New("connection refused"))

	u := newTestUsecase(scratch, map[domain.EngineType]RenderBackend{
		domain.EngineComposition: compositionFake(),
	}, passEncoder(), artifacts)

	_, err := u.Render(context.Background(), &domain.RenderRequest{
		ProjectID:  "proj1",
		UserID:     "user1",
		SourceCode: "scene",
	})
	assert.Error(t, err)
	assert.Equal(t, domain.ErrUpload, domain.AsJobError(err).Kind)
	assertScratchEmpty(t, scratch)
}

func TestRenderInvalidRequestBeforeAnyEngine(t *testing.T) {
	scratch := t.TempDir()
	artifacts := new(MockArtifactRepo)
	backendCalled := false
	backend := &funcBackend{fn: func(ctx context.Context, job *domain.Job, req *domain.RenderRequest, onProgress func(float64)) (*domain.RenderOutput, error) {
		backendCalled = true
		return nil, nil
	}}

	u := newTestUsecase(scratch, map[domain.EngineType]RenderBackend{
		domain.EngineComposition: backend,
	}, passEncoder(), artifacts)

	cases := []*domain.RenderRequest{
		{ProjectID: "p", UserID: "u", SourceCode: "s", DurationInFrames: -1},
		{ProjectID: "p", UserID: "u", SourceCode: "s", Width: -640, Height: 480},
		{ProjectID: "p", UserID: "u", SourceCode: "s", Width: 640, Height: -480},
		{ProjectID: "p", UserID: "u", SourceCode: ""},
	}
	for _, req := range cases {
		_, err := u.Render(context.Background(), req)
		assert.Error(t, err)
		assert.Equal(t, domain.ErrInvalidRequest, domain.AsJobError(err).Kind)
	}

	assert.False(t, backendCalled)
	assertScratchEmpty(t, scratch)
}

func TestRenderUnknownEngineRejected(t *testing.T) {
	scratch := t.TempDir()
	u := newTestUsecase(scratch, map[domain.EngineType]RenderBackend{}, passEncoder(), new(MockArtifactRepo))

	_, err := u.Render(context.Background(), &domain.RenderRequest{
		ProjectID:  "p",
		UserID:     "u",
		SourceCode: "s",
		Engine:     domain.EngineCapture,
	})
	assert.Error(t, err)
	assert.Equal(t, domain.ErrInvalidRequest, domain.AsJobError(err).Kind)
	assertScratchEmpty(t, scratch)
}

func TestRenderConcurrentJobsIsolated(t *testing.T) {
	scratch := t.TempDir()
	artifacts := new(MockArtifactRepo)
	artifacts.On("Upload", mock.Anything, mock.Anything, mock.Anything, "video/mp4").
		Return("http://127.0.0.1:9000/videos/k", nil)

	var mu sync.Mutex
	roots := map[string]bool{}
	backend := &funcBackend{fn: func(ctx context.Context, job *domain.Job, req *domain.RenderRequest, onProgress func(float64)) (*domain.RenderOutput, error) {
		mu.Lock()
		roots[job.Workspace.Root] = true
		mu.Unlock()
		return compositionFake().Render(ctx, job, req, onProgress)
	}}

	u := newTestUsecase(scratch, map[domain.EngineType]RenderBackend{
		domain.EngineComposition: backend,
	}, passEncoder(), artifacts)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := u.Render(context.Background(), &domain.RenderRequest{
				ProjectID:  fmt.Sprintf("proj-%d", i),
				UserID:     "user1",
				SourceCode: "scene",
			})
			assert.NoError(t, err)
			assert.True(t, res.Success)
		}(i)
	}
	wg.Wait()

	assert.Len(t, roots, 2)
	assert.Len(t, artifacts.keys, 2)
	assert.NotEqual(t, artifacts.keys[0], artifacts.keys[1])
	assertScratchEmpty(t, scratch)
}

func TestRenderAdmissionLimitBoundsConcurrency(t *testing.T) {
	scratch := t.TempDir()
	artifacts := new(MockArtifactRepo)
	artifacts.On("Upload", mock.Anything, mock.Anything, mock.Anything, "video/mp4").
		Return("http://127.0.0.1:9000/videos/k", nil)

	var inFlight, maxInFlight int64
	backend := &funcBackend{fn: func(ctx context.Context, job *domain.Job, req *domain.RenderRequest, onProgress func(float64)) (*domain.RenderOutput, error) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			seen := atomic.LoadInt64(&maxInFlight)
			if n <= seen || atomic.CompareAndSwapInt64(&maxInFlight, seen, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return compositionFake().Render(ctx, job, req, onProgress)
	}}

	u := NewRenderUseCase(NewWorkspaceManager(scratch), map[domain.EngineType]RenderBackend{
		domain.EngineComposition: backend,
	}, passEncoder(), artifacts, 1)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := u.Render(context.Background(), &domain.RenderRequest{
				ProjectID:  fmt.Sprintf("proj-%d", i),
				UserID:     "user1",
				SourceCode: "scene",
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&maxInFlight))
	assertScratchEmpty(t, scratch)
}

func TestRenderCanceledContextStillReleasesWorkspace(t *testing.T) {
	scratch := t.TempDir()
	artifacts := new(MockArtifactRepo)
	backend := &funcBackend{fn: func(ctx context.Context, job *domain.Job, req *domain.RenderRequest, onProgress func(float64)) (*domain.RenderOutput, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	u := newTestUsecase(scratch, map[domain.EngineType]RenderBackend{
		domain.EngineComposition: backend,
	}, passEncoder(), artifacts)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := u.Render(ctx, &domain.RenderRequest{
		ProjectID:  "proj1",
		UserID:     "user1",
		SourceCode: "scene",
	})
	assert.Error(t, err)
	assertScratchEmpty(t, scratch)
}

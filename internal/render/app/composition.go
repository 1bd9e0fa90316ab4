package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/domain"
	errprocess "github.com/jacoboliverbusiness-stack/endless-ai-render-service/pkg/err"
)

// RenderBackend common contract of the two rendering engines
type RenderBackend interface {
	Render(ctx context.Context, job *domain.Job, req *domain.RenderRequest, onProgress func(float64)) (*domain.RenderOutput, error)
}

// CompositionID fixed id wiring the generated entry stub to the resolution
// step. Both sides must use this exact constant or resolution fails.
const CompositionID = "Main"

// CompositionEngine outbound contract of the bundling/rendering engine
type CompositionEngine interface {
	Bundle(ctx context.Context, entryPoint, outDir string) (string, error)
	SelectComposition(ctx context.Context, bundleDir, compositionID string) error
	RenderMedia(ctx context.Context, bundleDir, compositionID, outputFile string) error
}

type compositionBackend struct {
	engine CompositionEngine
}

// NewCompositionBackend create the composition RenderBackend
func NewCompositionBackend(engine CompositionEngine) RenderBackend {
	return &compositionBackend{engine: engine}
}

// Render materialize the caller source plus a generated entry stub, bundle
// it, resolve the fixed composition id and render straight to the output
// file. Bundling or resolution failure is fatal, no partial output is usable.
func (b *compositionBackend) Render(ctx context.Context, job *domain.Job, req *domain.RenderRequest, onProgress func(float64)) (*domain.RenderOutput, error) {
	ws := job.Workspace

	srcPath := filepath.Join(ws.SrcDir, "composition.jsx")
	if err := os.WriteFile(srcPath, []byte(req.SourceCode), 0644); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("jobID[%s] write composition source failed : %v", job.ID, err))
	}
	entryPath := filepath.Join(ws.SrcDir, "entry.jsx")
	if err := os.WriteFile(entryPath, []byte(entryStub(req)), 0644); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("jobID[%s] write entry stub failed : %v", job.ID, err))
	}
	onProgress(0.1)

	bundleDir, err := b.engine.Bundle(ctx, entryPath, filepath.Join(ws.Root, "bundle"))
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("jobID[%s] bundle failed : %v", job.ID, err))
	}
	onProgress(0.4)

	if err := b.engine.SelectComposition(ctx, bundleDir, CompositionID); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("jobID[%s] composition [%s] resolution failed : %v", job.ID, CompositionID, err))
	}
	onProgress(0.5)

	if err := b.engine.RenderMedia(ctx, bundleDir, CompositionID, ws.OutputFile); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("jobID[%s] render media failed : %v", job.ID, err))
	}
	onProgress(1)

	return &domain.RenderOutput{EncodedFile: ws.OutputFile, NeedsEncode: false}, nil
}

// entryStub generated loader wiring the caller's default export into the
// fixed-id composition container with the requested timing and dimensions
func entryStub(req *domain.RenderRequest) string {
	return fmt.Sprintf(`import {registerRoot, Composition} from "remotion";
import Scene from "./composition.jsx";

registerRoot(() => (
  <Composition
    id=%q
    component={Scene}
    durationInFrames={%d}
    fps={%d}
    width={%d}
    height={%d}
  />
));
`, CompositionID, req.DurationInFrames, req.FPS, req.Width, req.Height)
}

// execCompositionEngine drives the external renderer CLI, the caller's code
// only ever executes inside that subprocess
type execCompositionEngine struct {
	bin string
}

// NewExecCompositionEngine create a CompositionEngine backed by the renderer CLI
func NewExecCompositionEngine(bin string) CompositionEngine {
	return &execCompositionEngine{bin: bin}
}

func (e *execCompositionEngine) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, e.bin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v failed: %v, output: %s", e.bin, args, err, string(output))
	}
	return nil
}

// Bundle bundle the entry point into a loadable artifact directory
func (e *execCompositionEngine) Bundle(ctx context.Context, entryPoint, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("create bundle dir failed: %v", err)
	}
	if err := e.run(ctx, "bundle", "--entry", entryPoint, "--out", outDir); err != nil {
		return "", err
	}
	return outDir, nil
}

// SelectComposition resolve the named composition inside the bundle
func (e *execCompositionEngine) SelectComposition(ctx context.Context, bundleDir, compositionID string) error {
	return e.run(ctx, "compositions", "--bundle", bundleDir, "--id", compositionID)
}

// RenderMedia render the resolved composition to the output file
func (e *execCompositionEngine) RenderMedia(ctx context.Context, bundleDir, compositionID, outputFile string) error {
	return e.run(ctx, "render", "--bundle", bundleDir, "--id", compositionID,
		"--codec", "h264", "--out", outputFile)
}

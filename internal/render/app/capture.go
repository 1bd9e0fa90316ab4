package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/domain"
	errprocess "github.com/jacoboliverbusiness-stack/endless-ai-render-service/pkg/err"
)

// Browser outbound contract of the headless browser automation.
// Open blocks until the document reached a stable rendered state.
type Browser interface {
	Open(ctx context.Context, url string, width, height int) (BrowserPage, error)
}

// BrowserPage one live page of an isolated browser process
type BrowserPage interface {
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

type captureBackend struct {
	browser Browser
}

// NewCaptureBackend create the frame-capture RenderBackend
func NewCaptureBackend(browser Browser) RenderBackend {
	return &captureBackend{browser: browser}
}

// Render assemble a self-contained document around the caller's animation
// code, open it in an isolated browser sized to the exact requested pixels,
// then screenshot one frame every 1000/fps ms into the frame directory.
// The browser is torn down whether or not capture completed.
func (b *captureBackend) Render(ctx context.Context, job *domain.Job, req *domain.RenderRequest, onProgress func(float64)) (*domain.RenderOutput, error) {
	ws := job.Workspace

	docPath := filepath.Join(ws.SrcDir, "animation.html")
	if err := os.WriteFile(docPath, []byte(animationDocument(req)), 0644); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("jobID[%s] write animation document failed : %v", job.ID, err))
	}

	page, err := b.browser.Open(ctx, "file://"+docPath, req.Width, req.Height)
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("jobID[%s] browser launch failed : %v", job.ID, err))
	}
	defer page.Close()

	total := req.DurationInFrames
	interval := time.Second / time.Duration(req.FPS)
	decile := total / 10

	for i := 0; i < total; i++ {
		shot, err := page.Screenshot(ctx)
		if err != nil {
			return nil, errprocess.Set(fmt.Sprintf("jobID[%s] capture frame %d failed : %v", job.ID, i, err))
		}
		framePath := filepath.Join(ws.FrameDir, domain.FrameFileName(i))
		if err := os.WriteFile(framePath, shot, 0644); err != nil {
			return nil, errprocess.Set(fmt.Sprintf("jobID[%s] write frame %d failed : %v", job.ID, i, err))
		}

		if decile > 0 && (i+1)%decile == 0 {
			onProgress(float64(i+1) / float64(total))
		}

		if i < total-1 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return nil, errprocess.Set(fmt.Sprintf("jobID[%s] capture canceled : %v", job.ID, ctx.Err()))
			}
		}
	}
	onProgress(1)

	return &domain.RenderOutput{FrameDir: ws.FrameDir, NeedsEncode: true}, nil
}

// animationDocument self-contained markup embedding the caller's animation
// program, sized so the viewport maps 1:1 onto output pixels
func animationDocument(req *domain.RenderRequest) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  html, body { margin: 0; padding: 0; overflow: hidden; }
  #stage { width: %dpx; height: %dpx; position: relative; }
</style>
</head>
<body>
<div id="stage"></div>
<script>
window.__fps = %d;
window.__totalFrames = %d;
%s
</script>
</body>
</html>
`, req.Width, req.Height, req.FPS, req.DurationInFrames, req.SourceCode)
}

// chromedpBrowser launches one isolated headless Chrome per page
type chromedpBrowser struct {
	execPath string
}

// NewChromedpBrowser create a Browser backed by chromedp.
// execPath empty lets chromedp locate the Chrome binary itself.
func NewChromedpBrowser(execPath string) Browser {
	return &chromedpBrowser{execPath: execPath}
}

type chromedpPage struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

// Open launch a browser, navigate and wait for the body to be ready
func (b *chromedpBrowser) Open(ctx context.Context, url string, width, height int) (BrowserPage, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(width, height),
		chromedp.Flag("hide-scrollbars", true),
	)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	pageCtx, cancelPage := chromedp.NewContext(allocCtx)
	cancels := []context.CancelFunc{cancelPage, cancelAlloc}

	err := chromedp.Run(pageCtx,
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		for _, cancel := range cancels {
			cancel()
		}
		return nil, err
	}
	return &chromedpPage{ctx: pageCtx, cancels: cancels}, nil
}

// Screenshot capture the current viewport
func (p *chromedpPage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := chromedp.Run(p.ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close tear the browser process down
func (p *chromedpPage) Close() error {
	for _, cancel := range p.cancels {
		cancel()
	}
	return nil
}

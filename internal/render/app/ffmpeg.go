package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/domain"
	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/pkg/logger"
)

// Encoder turn a captured frame sequence into a compressed video container
type Encoder interface {
	Encode(ctx context.Context, frameDir string, fps int, outputPath string) error
}

type ffmpegEncoder struct {
	bin string
}

// NewFFmpegEncoder create an Encoder backed by the external ffmpeg binary.
// bin empty means "ffmpeg" from PATH.
func NewFFmpegEncoder(bin string) Encoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &ffmpegEncoder{bin: bin}
}

// Encode run ffmpeg over the zero-padded frame pattern. yuv420p keeps the
// output playable everywhere, crf 23 balances size and fidelity.
func (e *ffmpegEncoder) Encode(ctx context.Context, frameDir string, fps int, outputPath string) error {
	cmdArgs := []string{
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", filepath.Join(frameDir, domain.FramePattern),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-crf", "23",
		"-y",
		outputPath,
	}
	logger.Log.Info(fmt.Sprintf("run ffmpeg: %s %v", e.bin, cmdArgs))
	cmd := exec.CommandContext(ctx, e.bin, cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg encode failed: %v, output: %s", err, string(output))
	}

	// a zero-exit ffmpeg can still leave a truncated file behind on a full
	// disk, never hand that on as a finished artifact
	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("ffmpeg output missing: %v", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("ffmpeg output empty: %s", outputPath)
	}
	return nil
}

package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// FFmpegExtractor pulls frames out of video artifacts by shelling out to
// ffmpeg. It implements continuity.FrameExtractor.
type FFmpegExtractor struct {
	binary string
}

func NewFFmpegExtractor() *FFmpegExtractor {
	return &FFmpegExtractor{binary: "ffmpeg"}
}

// ExtractLastFrame writes the trailing frame of videoPath to outputPath as a
// JPEG. Seeks from the end so decode cost is independent of clip length.
func (e *FFmpegExtractor) ExtractLastFrame(ctx context.Context, videoPath, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.binary,
		"-sseof", "-0.1",
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		outputPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, string(out))
	}

	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("ffmpeg produced no output frame: %w", err)
	}
	return nil
}

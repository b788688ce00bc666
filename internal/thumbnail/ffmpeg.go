package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// maxStderr bounds how much ffmpeg output is kept in an error message.
const maxStderr = 2048

// FFmpegGenerator renders thumbnails with the ffmpeg command line tool.
// It works for still images and grabs a frame half a second into videos.
type FFmpegGenerator struct {
	Path    string
	Size    int
	Quality int
}

func (g *FFmpegGenerator) args(src, dst string) []string {
	size := strconv.Itoa(g.Size)
	return []string{
		"-y",
		"-i", src,
		"-ss", "00:00:00.5",
		"-vframes", "1",
		"-vf", "scale=" + size + ":" + size + ":force_original_aspect_ratio=decrease",
		"-q:v", strconv.Itoa(g.Quality),
		dst,
	}
}

func (g *FFmpegGenerator) Generate(ctx context.Context, src, dst string) error {
	path := g.Path
	if path == "" {
		path = "ffmpeg"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, g.args(src, dst)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		out := strings.TrimSpace(stderr.String())
		if len(out) > maxStderr {
			out = "..." + out[len(out)-maxStderr:]
		}
		if out == "" {
			return fmt.Errorf("ffmpeg: %w", err)
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, out)
	}
	return nil
}

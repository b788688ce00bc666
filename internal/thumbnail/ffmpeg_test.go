package thumbnail

import (
	"strings"
	"testing"
)

func TestFFmpegGenerator_Args(t *testing.T) {
	g := &FFmpegGenerator{Size: 256, Quality: 80}
	got := strings.Join(g.args("/src/a.mp4", "/cache/1.webp"), " ")
	want := "-y -i /src/a.mp4 -ss 00:00:00.5 -vframes 1 -vf scale=256:256:force_original_aspect_ratio=decrease -q:v 80 /cache/1.webp"
	if got != want {
		t.Errorf("args() = %q\nwant %q", got, want)
	}
}

package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Transcoder converts an audio file into another container
type Transcoder interface {
	Transcode(ctx context.Context, src, format string) (dst string, err error)
}

// FFmpeg runs the ffmpeg binary
type FFmpeg struct {
	Bin string
}

// Transcode writes dst next to src with the new extension
func (f FFmpeg) Transcode(ctx context.Context, src, format string) (string, error) {
	bin := f.Bin
	if len(bin) == 0 {
		bin = "ffmpeg"
	}
	dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".conv." + format
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-hide_banner", "-loglevel", "error", "-y", "-i", src, dst)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg %s: %w: %s", filepath.Base(src), err, strings.TrimSpace(stderr.String()))
	}
	return dst, nil
}

// Package thumbnail extracts still frames from video files with the
// ffmpeg command line tools. It is the last-resort image source when a
// catalog has no still for an episode.
package thumbnail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelvault/reelvault/internal/config"
)

// frameOffset is how far into playback the sampled frame is taken,
// clamped when the video is shorter.
const frameOffset = 180 * time.Second

// ErrUnavailable is returned when no ffmpeg binary could be located.
var ErrUnavailable = errors.New("ffmpeg executable not found")

// Generator samples frames from local video files.
type Generator struct {
	ffmpegPath  string
	ffprobePath string
	logger      zerolog.Logger
}

// New creates a generator, locating the ffmpeg and ffprobe binaries
// from the configured paths, PATH, or common install locations.
func New(cfg config.ThumbnailsConfig, logger zerolog.Logger) *Generator {
	return &Generator{
		ffmpegPath:  findExecutable("ffmpeg", cfg.FFmpegPath),
		ffprobePath: findExecutable("ffprobe", cfg.FFprobePath),
		logger:      logger.With().Str("component", "thumbnail").Logger(),
	}
}

// Available reports whether frame extraction is possible on this host.
func (g *Generator) Available() bool {
	return g.ffmpegPath != ""
}

// Generate returns JPEG bytes for a frame sampled from the video at
// path. The frame is taken at a fixed playback offset, pulled back when
// the file is shorter than the offset.
func (g *Generator) Generate(ctx context.Context, path string) ([]byte, error) {
	if g.ffmpegPath == "" {
		return nil, ErrUnavailable
	}

	offset := frameOffset
	if dur, err := g.probeDuration(ctx, path); err != nil {
		g.logger.Debug().Err(err).Str("path", path).Msg("Duration probe failed, using fixed offset")
	} else if dur > 0 && offset >= dur {
		offset = dur / 2
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.ffmpegPath,
		"-ss", strconv.FormatFloat(offset.Seconds(), 'f', 2, 64),
		"-i", path,
		"-frames:v", "1",
		"-q:v", "4",
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame for %s", path)
	}
	return stdout.Bytes(), nil
}

// probeDuration asks ffprobe for the container duration.
func (g *Generator) probeDuration(ctx context.Context, path string) (time.Duration, error) {
	if g.ffprobePath == "" {
		return 0, errors.New("ffprobe executable not found")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w: %s", err, stderr.String())
	}

	var output struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &output); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	f, err := strconv.ParseFloat(output.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return time.Duration(f * float64(time.Second)), nil
}

// findExecutable finds an executable by name or explicit path.
func findExecutable(name, explicitPath string) string {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err == nil {
			return explicitPath
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path
	}

	var commonPaths []string
	switch runtime.GOOS {
	case "darwin":
		commonPaths = []string{
			"/usr/local/bin/" + name,
			"/opt/homebrew/bin/" + name,
		}
	case "linux":
		commonPaths = []string{
			"/usr/bin/" + name,
			"/usr/local/bin/" + name,
		}
	case "windows":
		commonPaths = []string{
			`C:\Program Files\ffmpeg\bin\` + name + ".exe",
			`C:\ffmpeg\bin\` + name + ".exe",
		}
	}

	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"scribe/internal/config"
	"scribe/internal/services"
)

// Service wraps the external yt-dlp and ffmpeg binaries that download and
// segment audio tracks.
type Service struct {
	fetchBinary    string
	ffmpegBinary   string
	cookieFile     string
	splitThreshold int64
	segmentSeconds int
	workDir        string

	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a media service from the runtime configuration.
func NewService(cfg *config.Config) *Service {
	return &Service{
		fetchBinary:    cfg.Media.FetchBinary,
		ffmpegBinary:   cfg.Media.FFmpegBinary,
		cookieFile:     cfg.Media.CookieFile,
		splitThreshold: int64(cfg.Media.SplitThresholdMB) * 1024 * 1024,
		segmentSeconds: cfg.Media.SegmentSeconds,
		workDir:        cfg.Paths.WorkDir,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// SplitThreshold returns the byte size above which audio is segmented
// before transcription.
func (s *Service) SplitThreshold() int64 {
	return s.splitThreshold
}

// ShouldSplit reports whether an audio blob of the given size needs
// segmenting before upload.
func (s *Service) ShouldSplit(size int64) bool {
	return s.splitThreshold > 0 && size > s.splitThreshold
}

// FetchAudio downloads the audio track of a video as MP3 into the working
// directory and returns the downloaded file path.
func (s *Service) FetchAudio(ctx context.Context, videoID int64, sourceURL string) (string, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return "", services.Wrap(services.ErrValidation, "fetch_audio", "download audio", "source url required", nil)
	}
	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure work dir: %w", err)
	}

	dest := filepath.Join(s.workDir, fmt.Sprintf("%d.mp3", videoID))
	args := []string{
		"--no-playlist",
		"--extract-audio",
		"--audio-format", "mp3",
		"--output", filepath.Join(s.workDir, fmt.Sprintf("%d.%%(ext)s", videoID)),
	}
	if s.cookieFile != "" {
		args = append(args, "--cookies", s.cookieFile)
	}
	args = append(args, sourceURL)

	if err := s.run(ctx, s.fetchBinary, args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "fetch_audio", "download audio", sourceURL, err)
	}
	if _, err := os.Stat(dest); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "fetch_audio", "download audio", "expected output "+dest+" missing", err)
	}
	return dest, nil
}

// SplitAudio cuts an audio file into fixed-length segments without
// re-encoding and returns the segment paths in playback order.
func (s *Service) SplitAudio(ctx context.Context, source, outputDir string) ([]string, error) {
	if s.segmentSeconds <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "split audio", "segment length not configured", nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure split dir: %w", err)
	}

	pattern := filepath.Join(outputDir, "segment_%03d.mp3")
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-f", "segment",
		"-segment_time", fmt.Sprintf("%d", s.segmentSeconds),
		"-c", "copy",
		pattern,
	}
	if err := s.run(ctx, s.ffmpegBinary, args...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "split audio", source, err)
	}

	segments, err := filepath.Glob(filepath.Join(outputDir, "segment_*.mp3"))
	if err != nil {
		return nil, fmt.Errorf("glob segments: %w", err)
	}
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "split audio", "no segments produced", nil)
	}
	// Glob output is sorted lexically; the zero-padded index keeps that in
	// playback order.
	return segments, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

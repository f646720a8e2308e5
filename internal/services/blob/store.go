package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/config"
	"scribe/internal/fileutil"
	"scribe/internal/services"
)

// Store keeps fetched audio blobs on the local filesystem, one file per
// video keyed by "<video_id>.mp3". The stored path doubles as the audio URL
// persisted on the video row.
type Store struct {
	dir string
}

// NewStore prepares the blob directory from the config.
func NewStore(cfg *config.Config) (*Store, error) {
	dir := strings.TrimSpace(cfg.Paths.BlobDir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "blob store", "blob directory not configured", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Key returns the blob name for a video.
func (s *Store) Key(videoID int64) string {
	return fmt.Sprintf("%d.mp3", videoID)
}

// Path returns the absolute location a video's blob occupies.
func (s *Store) Path(videoID int64) string {
	return filepath.Join(s.dir, s.Key(videoID))
}

// Put moves a fetched audio file into the store, replacing any existing blob
// for the video, and returns its stored path. A cross-device rename falls
// back to copy-and-remove.
func (s *Store) Put(videoID int64, sourcePath string) (string, error) {
	target := s.Path(videoID)
	if err := os.Rename(sourcePath, target); err == nil {
		return target, nil
	}
	if err := fileutil.CopyFileVerified(sourcePath, target); err != nil {
		return "", fmt.Errorf("copy blob: %w", err)
	}
	_ = os.Remove(sourcePath)
	return target, nil
}

// Open returns a reader over a video's blob.
func (s *Store) Open(videoID int64) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(videoID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "", "open blob", s.Key(videoID), err)
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Size reports the byte size of a video's blob.
func (s *Store) Size(videoID int64) (int64, error) {
	info, err := os.Stat(s.Path(videoID))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, services.Wrap(services.ErrNotFound, "", "stat blob", s.Key(videoID), err)
		}
		return 0, fmt.Errorf("stat blob: %w", err)
	}
	return info.Size(), nil
}

// Exists reports whether a blob is stored for the video.
func (s *Store) Exists(videoID int64) bool {
	_, err := os.Stat(s.Path(videoID))
	return err == nil
}

// Remove deletes a video's blob. Removing a missing blob is not an error.
func (s *Store) Remove(videoID int64) error {
	if err := os.Remove(s.Path(videoID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

package staging

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Stager writes uploaded files to a temp directory for the duration of a
// request. Staged names carry a random suffix so concurrent uploads of the
// same filename never collide.
type Stager struct {
	dir string
}

// New creates the staging directory if it does not exist.
func New(dir string) (*Stager, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "viab-uploads")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	return &Stager{dir: dir}, nil
}

// Dir returns the staging directory path.
func (s *Stager) Dir() string {
	return s.dir
}

// Stage copies a multipart upload into the staging directory and returns the
// staged path. The stored name is "<base>_<8 hex chars><ext>".
func (s *Stager) Stage(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
	}
	defer src.Close()

	path := s.stagedPath(fh.Filename)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create staged file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write staged file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close staged file: %w", err)
	}

	return path, nil
}

// StageBytes stages raw content under the given original filename.
func (s *Stager) StageBytes(name string, data []byte) (string, error) {
	path := s.stagedPath(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write staged file: %w", err)
	}
	return path, nil
}

// Cleanup removes staged files in the background. Removal failures are
// logged, not returned, since the request has already been answered.
func (s *Stager) Cleanup(paths []string) {
	if len(paths) == 0 {
		return
	}
	go func() {
		for _, p := range paths {
			if p == "" {
				continue
			}
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				logrus.WithError(err).WithField("path", p).Warn("Failed to remove staged file")
			}
		}
	}()
}

func (s *Stager) stagedPath(original string) string {
	base := filepath.Base(original)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = "upload"
	}
	suffix := uuid.New().String()[:8]
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s%s", stem, suffix, ext))
}

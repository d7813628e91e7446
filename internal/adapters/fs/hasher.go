package fs

import (
	"io"
	"os"

	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher computes content fingerprints of files.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// HashFile computes the fingerprint of a file's content.
func (h *Hasher) HashFile(path string) (domain.Hash, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return domain.Hash{}, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	b := domain.NewHashBuilder()
	if _, err := io.Copy(b, f); err != nil {
		return domain.Hash{}, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return b.Sum(), nil
}

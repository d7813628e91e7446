package ports

import "go.trai.ch/stale/internal/core/domain"

// Hasher defines the interface for computing content fingerprints.
//
//go:generate mockgen -destination=mocks/mock_hasher.go -package=mocks -source=hasher.go
type Hasher interface {
	// HashFile computes the fingerprint of a single file's content.
	HashFile(path string) (domain.Hash, error)
}

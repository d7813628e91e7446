package fingerprint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/engine/fingerprint"
)

func library(files map[string]string, order ...string) *domain.Library {
	lib := &domain.Library{
		Path:             domain.NewLibraryPath("core"),
		FileFingerprints: make(map[domain.SourcePath]domain.Hash),
	}
	b := domain.NewHashBuilder()
	for _, name := range order {
		src := domain.NewSourcePath(name)
		fp := domain.HashString(files[name])
		lib.Files = append(lib.Files, src)
		lib.FileFingerprints[src] = fp
		b.String(name).Hash(fp)
	}
	lib.Fingerprint = b.Sum()
	return lib
}

func paths(names ...string) []domain.SourcePath {
	out := make([]domain.SourcePath, 0, len(names))
	for _, n := range names {
		out = append(out, domain.NewSourcePath(n))
	}
	return out
}

func TestClassify(t *testing.T) {
	committed := library(map[string]string{"a": "1", "b": "1", "c": "1"}, "a", "b", "c")

	tests := []struct {
		name    string
		current *domain.Library
		prior   domain.Lookup[domain.LibraryHeader]
		want    domain.Classification
	}{
		{
			name:    "no prior header",
			current: library(map[string]string{"a": "1"}, "a"),
			prior:   domain.NotFound[domain.LibraryHeader](),
			want:    domain.Classification{Added: paths("a")},
		},
		{
			name:    "unchanged library short-circuits",
			current: library(map[string]string{"a": "1", "b": "1", "c": "1"}, "a", "b", "c"),
			prior:   domain.Found(committed.Header()),
			want:    domain.Classification{Unmodified: paths("a", "b", "c")},
		},
		{
			name:    "per file comparison",
			current: library(map[string]string{"a": "1", "b": "2", "d": "1"}, "a", "b", "d"),
			prior:   domain.Found(committed.Header()),
			want: domain.Classification{
				Added:      paths("d"),
				Modified:   paths("b"),
				Removed:    paths("c"),
				Unmodified: paths("a"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want.Library = tt.current.Path
			got := fingerprint.Classify(tt.current, tt.prior)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_DirtyAndClean(t *testing.T) {
	committed := library(map[string]string{"a": "1"}, "a")

	clean := fingerprint.Classify(library(map[string]string{"a": "1"}, "a"), domain.Found(committed.Header()))
	assert.True(t, clean.IsClean())
	assert.Empty(t, clean.Dirty())

	changed := fingerprint.Classify(library(map[string]string{"a": "2", "b": "1"}, "a", "b"), domain.Found(committed.Header()))
	assert.False(t, changed.IsClean())
	assert.Equal(t, paths("b", "a"), changed.Dirty())
}

func TestClassifyOrphan(t *testing.T) {
	lib := domain.NewLibraryPath("gone")
	got := fingerprint.ClassifyOrphan(lib, paths("x", "y"))

	assert.Equal(t, lib, got.Library)
	assert.Equal(t, paths("x", "y"), got.Removed)
	assert.Empty(t, got.Dirty())
}

func TestClassifyRecovered(t *testing.T) {
	current := library(map[string]string{"a": "1", "b": "2"}, "a", "b")
	got := fingerprint.ClassifyRecovered(current, paths("b", "c"))

	assert.Equal(t, paths("b"), got.Modified)
	assert.Equal(t, paths("a"), got.Added)
	assert.Equal(t, paths("c"), got.Removed)
	assert.Empty(t, got.Unmodified)
}

// Package klib implements the unit library format: a library is a directory holding a
// library.yaml manifest and *.unit.yaml source units. It provides the library reader and
// the symbol loader.
package klib

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"

	stalefs "go.trai.ch/stale/internal/adapters/fs"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Reader implements ports.LibraryReader.
type Reader struct {
	walker *stalefs.Walker
	hasher ports.Hasher
}

// NewReader creates a Reader fingerprinting files with hasher.
func NewReader(walker *stalefs.Walker, hasher ports.Hasher) *Reader {
	return &Reader{walker: walker, hasher: hasher}
}

// Read collects the source units of the library at path below root and fingerprints them.
// Files are fingerprinted in parallel; the result does not depend on scheduling.
func (r *Reader) Read(ctx context.Context, root string, lib domain.LibraryPath) (*domain.Library, error) {
	dir := filepath.Join(root, filepath.FromSlash(lib.String()))
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, zerr.With(zerr.Wrap(domain.ErrLibraryNotFound, "failed to read library"), "dir", dir)
	}

	manifest, err := readManifest(dir)
	if err != nil {
		return nil, zerr.With(err, "library", lib.String())
	}
	if manifest.Name == "" {
		manifest.Name = path.Base(lib.String())
	}

	files := slices.Collect(r.walker.WalkFiles(dir, domain.UnitFileSuffix, manifest.Ignore))
	fingerprints := make([]domain.Hash, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := r.hasher.HashFile(filepath.Join(dir, filepath.FromSlash(rel)))
			if err != nil {
				return zerr.With(err, "file", rel)
			}
			fingerprints[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to fingerprint library"), "library", lib.String())
	}

	out := &domain.Library{
		Path:             lib,
		Dir:              dir,
		Name:             manifest.Name,
		Files:            make([]domain.SourcePath, 0, len(files)),
		FileFingerprints: make(map[domain.SourcePath]domain.Hash, len(files)),
	}
	b := domain.NewHashBuilder().Uint64(uint64(len(files)))
	for i, rel := range files {
		src := domain.NewSourcePath(rel)
		out.Files = append(out.Files, src)
		out.FileFingerprints[src] = fingerprints[i]
		b.String(rel).Hash(fingerprints[i])
	}
	out.Fingerprint = b.Sum()
	return out, nil
}

func readManifest(dir string) (Manifest, error) {
	var m Manifest
	p := filepath.Join(dir, domain.LibraryFileName)
	// #nosec G304 -- p is the manifest of a configured library
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, nil
		}
		return m, zerr.With(zerr.Wrap(err, "failed to read library manifest"), "path", p)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "failed to parse library manifest: "+err.Error()), "path", p)
	}
	return m, nil
}

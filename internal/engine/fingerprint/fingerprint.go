// Package fingerprint classifies source files by comparing content fingerprints against the
// last committed header.
package fingerprint

import "go.trai.ch/stale/internal/core/domain"

// Classify compares the current library against its committed header.
//
// An unchanged whole-library fingerprint short-circuits the per-file comparison. A missing
// header classifies every file as added.
func Classify(current *domain.Library, prior domain.Lookup[domain.LibraryHeader]) domain.Classification {
	c := domain.Classification{Library: current.Path}

	header, ok := prior.Get()
	if !ok {
		c.Added = append(c.Added, current.Files...)
		return c
	}

	if header.Fingerprint == current.Fingerprint {
		c.Unmodified = append(c.Unmodified, current.Files...)
		return c
	}

	committed := header.Fingerprints()
	for _, src := range current.Files {
		old, known := committed[src]
		switch {
		case !known:
			c.Added = append(c.Added, src)
		case old != current.FileFingerprints[src]:
			c.Modified = append(c.Modified, src)
		default:
			c.Unmodified = append(c.Unmodified, src)
		}
		delete(committed, src)
	}

	for _, f := range header.Files {
		if _, gone := committed[f.Source]; gone {
			c.Removed = append(c.Removed, f.Source)
		}
	}

	return c
}

// ClassifyOrphan classifies every committed file of a library that left the build as removed.
func ClassifyOrphan(lib domain.LibraryPath, files []domain.SourcePath) domain.Classification {
	return domain.Classification{
		Library: lib,
		Removed: append([]domain.SourcePath(nil), files...),
	}
}

// ClassifyRecovered classifies a library whose header could not be read against the file list
// recovered from its metadata. Fingerprints are unknown, so every surviving file counts as
// modified.
func ClassifyRecovered(current *domain.Library, recovered []domain.SourcePath) domain.Classification {
	c := domain.Classification{Library: current.Path}

	known := make(map[domain.SourcePath]struct{}, len(recovered))
	for _, src := range recovered {
		known[src] = struct{}{}
	}
	for _, src := range current.Files {
		if _, ok := known[src]; ok {
			c.Modified = append(c.Modified, src)
			delete(known, src)
			continue
		}
		c.Added = append(c.Added, src)
	}
	for _, src := range recovered {
		if _, gone := known[src]; gone {
			c.Removed = append(c.Removed, src)
		}
	}
	return c
}

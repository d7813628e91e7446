package domain

import "slices"

// Library is the current, freshly read form of one library.
// It is recomputed on every invocation and never cached.
type Library struct {
	Path             LibraryPath
	// Dir is the absolute directory of the library.
	Dir              string
	Name             string
	Dependencies     []LibraryPath
	// Files is ordered as the library lists them.
	Files            []SourcePath
	Fingerprint      Hash
	FileFingerprints map[SourcePath]Hash
}

// Key returns the FileKey for src in this library.
func (l *Library) Key(src SourcePath) FileKey {
	return FileKey{Library: l.Path, Source: src}
}

// Header returns the fingerprint header to persist after a successful build.
func (l *Library) Header() LibraryHeader {
	files := make([]FileFingerprint, 0, len(l.Files))
	for _, src := range l.Files {
		files = append(files, FileFingerprint{Source: src, Fingerprint: l.FileFingerprints[src]})
	}
	return LibraryHeader{
		Path:        l.Path,
		Name:        l.Name,
		Fingerprint: l.Fingerprint,
		Files:       files,
	}
}

// FileFingerprint pairs a source path with its content fingerprint.
type FileFingerprint struct {
	Source      SourcePath
	Fingerprint Hash
}

// LibraryHeader is the committed fingerprint record of a library.
type LibraryHeader struct {
	Path        LibraryPath
	Name        string
	Fingerprint Hash
	Files       []FileFingerprint
}

// Equal reports whether h and o record the same fingerprints.
func (h LibraryHeader) Equal(o LibraryHeader) bool {
	return h.Path == o.Path && h.Name == o.Name && h.Fingerprint == o.Fingerprint && slices.Equal(h.Files, o.Files)
}

// Fingerprints returns the per-file fingerprints as a map.
func (h LibraryHeader) Fingerprints() map[SourcePath]Hash {
	m := make(map[SourcePath]Hash, len(h.Files))
	for _, f := range h.Files {
		m[f.Source] = f.Fingerprint
	}
	return m
}

// Classification is the result of comparing a library against its committed header.
type Classification struct {
	Library    LibraryPath
	Added      []SourcePath
	Modified   []SourcePath
	Removed    []SourcePath
	Unmodified []SourcePath
}

// Dirty returns the added and modified files.
func (c Classification) Dirty() []SourcePath {
	out := make([]SourcePath, 0, len(c.Added)+len(c.Modified))
	out = append(out, c.Added...)
	return append(out, c.Modified...)
}

// IsClean reports whether nothing changed.
func (c Classification) IsClean() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

package domain

import "fmt"

// LibraryPath is the canonical path identifying a library.
type LibraryPath struct {
	s InternedString
}

// NewLibraryPath interns a library path.
func NewLibraryPath(p string) LibraryPath {
	return LibraryPath{s: NewInternedString(p)}
}

// String returns the path.
func (p LibraryPath) String() string { return p.s.String() }

// Compare orders library paths lexically.
func (p LibraryPath) Compare(o LibraryPath) int { return p.s.Compare(o.s) }

// SourcePath is the path of a source file relative to its library root.
type SourcePath struct {
	s InternedString
}

// NewSourcePath interns a relative source path.
func NewSourcePath(p string) SourcePath {
	return SourcePath{s: NewInternedString(p)}
}

// String returns the path.
func (p SourcePath) String() string { return p.s.String() }

// Compare orders source paths lexically.
func (p SourcePath) Compare(o SourcePath) int { return p.s.Compare(o.s) }

// FileKey identifies a source file across libraries.
type FileKey struct {
	Library LibraryPath
	Source  SourcePath
}

// NewFileKey builds a FileKey from raw paths.
func NewFileKey(lib, src string) FileKey {
	return FileKey{Library: NewLibraryPath(lib), Source: NewSourcePath(src)}
}

// String renders the key as "library:source".
func (k FileKey) String() string {
	return fmt.Sprintf("%s:%s", k.Library, k.Source)
}

// Compare orders keys by library, then source.
func (k FileKey) Compare(o FileKey) int {
	if c := k.Library.Compare(o.Library); c != 0 {
		return c
	}
	return k.Source.Compare(o.Source)
}

// FileID is the arena slot of a FileKey inside a FileTable.
// IDs are only meaningful within the table that issued them and are never persisted.
type FileID uint32

// FileTable interns FileKeys into dense FileIDs.
type FileTable struct {
	keys []FileKey
	ids  map[FileKey]FileID
}

// NewFileTable creates an empty table.
func NewFileTable() *FileTable {
	return &FileTable{ids: make(map[FileKey]FileID)}
}

// Intern returns the ID for key, allocating a slot on first use.
func (t *FileTable) Intern(key FileKey) FileID {
	if id, ok := t.ids[key]; ok {
		return id
	}
	id := FileID(len(t.keys))
	t.keys = append(t.keys, key)
	t.ids[key] = id
	return id
}

// Lookup returns the ID for key if it was interned.
func (t *FileTable) Lookup(key FileKey) (FileID, bool) {
	id, ok := t.ids[key]
	return id, ok
}

// Key returns the FileKey stored in slot id.
func (t *FileTable) Key(id FileID) FileKey {
	return t.keys[id]
}

// Len returns the number of allocated slots.
func (t *FileTable) Len() int {
	return len(t.keys)
}

package domain

// CacheArtifact is the compiled fragment of one source file.
type CacheArtifact struct {
	// Symbols lists the signatures the fragment defines. A symbol's index is its position.
	Symbols  []Signature
	Fragment []byte
}

// ModuleRecord is the committed cross-module state of one library.
type ModuleRecord struct {
	CrossModuleHash Hash
	Files           []SourcePath
}

// CachedLibrary is a library directory found in the cache root.
type CachedLibrary struct {
	// Dir is the directory name inside the cache root.
	Dir    string
	Header Lookup[LibraryHeader]
}

// Commit is everything a successful build persists.
type Commit struct {
	// Table resolves the FileIDs used by Metadata.
	Table     *FileTable
	Headers   []LibraryHeader
	Metadata  map[FileKey]*SourceFileMetadata
	Fragments map[FileKey]*CacheArtifact
	// Removed files lose both their metadata and their fragment.
	Removed []FileKey
	// Stubs replaces the stub record of each listed library.
	Stubs   map[LibraryPath]map[SourcePath]SignatureSet
	Modules map[LibraryPath]ModuleRecord
	// Orphans are cache directories of libraries that left the build.
	Orphans []string
}

// NewCommit returns an empty commit over table.
func NewCommit(table *FileTable) *Commit {
	return &Commit{
		Table:     table,
		Metadata:  make(map[FileKey]*SourceFileMetadata),
		Fragments: make(map[FileKey]*CacheArtifact),
		Stubs:     make(map[LibraryPath]map[SourcePath]SignatureSet),
		Modules:   make(map[LibraryPath]ModuleRecord),
	}
}

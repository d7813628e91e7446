package domain

import (
	"maps"
	"slices"
)

// SourceFileMetadata is the dependency record persisted for one source file.
//
// Direct lists, per exporting file, the signatures this file imports together with the
// semantic hash observed at its last compile. Inverse lists, per importing file, the
// signatures of this file that the importer consumes.
type SourceFileMetadata struct {
	Direct  map[FileID]SignatureHashes
	Inverse map[FileID]SignatureSet
}

// NewSourceFileMetadata returns empty metadata.
func NewSourceFileMetadata() *SourceFileMetadata {
	return &SourceFileMetadata{
		Direct:  make(map[FileID]SignatureHashes),
		Inverse: make(map[FileID]SignatureSet),
	}
}

// Clone returns a deep copy.
func (m *SourceFileMetadata) Clone() *SourceFileMetadata {
	c := NewSourceFileMetadata()
	for id, sigs := range m.Direct {
		c.Direct[id] = sigs.Clone()
	}
	for id, sigs := range m.Inverse {
		c.Inverse[id] = sigs.Clone()
	}
	return c
}

// IsEmpty reports whether the file has no recorded edges.
func (m *SourceFileMetadata) IsEmpty() bool {
	return len(m.Direct) == 0 && len(m.Inverse) == 0
}

// AddDirect records that this file imports sig from exporter with hash h.
func (m *SourceFileMetadata) AddDirect(exporter FileID, sig Signature, h Hash) {
	sigs, ok := m.Direct[exporter]
	if !ok {
		sigs = make(SignatureHashes)
		m.Direct[exporter] = sigs
	}
	sigs[sig] = h
}

// AddInverse records that importer consumes sig from this file.
func (m *SourceFileMetadata) AddInverse(importer FileID, sig Signature) {
	sigs, ok := m.Inverse[importer]
	if !ok {
		sigs = make(SignatureSet)
		m.Inverse[importer] = sigs
	}
	sigs.Add(sig)
}

// ExportedSignatures returns every signature some other file consumes from this one.
func (m *SourceFileMetadata) ExportedSignatures() SignatureSet {
	set := make(SignatureSet)
	for _, sigs := range m.Inverse {
		set.AddAll(sigs)
	}
	return set
}

// Equal compares both maps as sets.
func (m *SourceFileMetadata) Equal(o *SourceFileMetadata) bool {
	if len(m.Direct) != len(o.Direct) || len(m.Inverse) != len(o.Inverse) {
		return false
	}
	for id, sigs := range m.Direct {
		if !sigs.Equal(o.Direct[id]) {
			return false
		}
	}
	for id, sigs := range m.Inverse {
		other, ok := o.Inverse[id]
		if !ok || !sigs.Equal(other) {
			return false
		}
	}
	return true
}

// SortedIDs returns the keys of an edge map in ascending slot order.
func SortedIDs[V any](edges map[FileID]V) []FileID {
	return slices.Sorted(maps.Keys(edges))
}

package domain

import (
	"maps"
	"slices"
	"strings"
)

// DirtyFileState is a set of diagnostic tags explaining why a file is part of a build.
// It is reported to users and never drives invalidation decisions.
type DirtyFileState uint16

const (
	// StateAdded marks a file without a committed fingerprint.
	StateAdded DirtyFileState = 1 << iota
	// StateRemoved marks a committed file that no longer exists.
	StateRemoved
	// StateModified marks a file whose content fingerprint changed.
	StateModified
	// StateUnmodified marks a file whose content is unchanged.
	StateUnmodified
	// StateExportsUpdated marks a file whose set of consumed exports changed.
	StateExportsUpdated
	// StateImportsUpdated marks a file that imports a signature whose hash changed.
	StateImportsUpdated
	// StateRemovedInverseDepends marks a file that exported to a removed file.
	StateRemovedInverseDepends
	// StateRemovedDirectDepends marks a file that imported from a removed file.
	StateRemovedDirectDepends
)

var stateNames = []struct {
	state DirtyFileState
	name  string
}{
	{StateAdded, "added"},
	{StateRemoved, "removed"},
	{StateModified, "modified"},
	{StateUnmodified, "unmodified"},
	{StateExportsUpdated, "exports-updated"},
	{StateImportsUpdated, "imports-updated"},
	{StateRemovedInverseDepends, "removed-inverse-depends"},
	{StateRemovedDirectDepends, "removed-direct-depends"},
}

// Has reports whether every tag in o is set.
func (s DirtyFileState) Has(o DirtyFileState) bool {
	return s&o == o
}

// String joins the tag names with commas.
func (s DirtyFileState) String() string {
	if s == 0 {
		return "clean"
	}
	var parts []string
	for _, n := range stateNames {
		if s.Has(n.state) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, ",")
}

// Diagnostics collects DirtyFileState tags per file.
type Diagnostics map[FileKey]DirtyFileState

// Tag adds state to key.
func (d Diagnostics) Tag(key FileKey, state DirtyFileState) {
	d[key] |= state
}

// Keys returns the tagged files in order.
func (d Diagnostics) Keys() []FileKey {
	return slices.SortedFunc(maps.Keys(d), FileKey.Compare)
}

package domain

import (
	"maps"
	"slices"
)

// Signature is the stable identifier of one exported declaration.
// It joins the file that defines a symbol with every file referencing it.
type Signature struct {
	s InternedString
}

// NewSignature interns a signature.
func NewSignature(s string) Signature {
	return Signature{s: NewInternedString(s)}
}

// String returns the signature text.
func (s Signature) String() string { return s.s.String() }

// IsZero reports whether the signature is unset.
func (s Signature) IsZero() bool { return s.s.IsZero() }

// Compare orders signatures lexically.
func (s Signature) Compare(o Signature) int { return s.s.Compare(o.s) }

// SignatureSet is an unordered set of signatures.
type SignatureSet map[Signature]struct{}

// NewSignatureSet builds a set from sigs.
func NewSignatureSet(sigs ...Signature) SignatureSet {
	set := make(SignatureSet, len(sigs))
	for _, s := range sigs {
		set[s] = struct{}{}
	}
	return set
}

// Add inserts sig.
func (s SignatureSet) Add(sig Signature) {
	s[sig] = struct{}{}
}

// AddAll inserts every member of other.
func (s SignatureSet) AddAll(other SignatureSet) {
	for sig := range other {
		s[sig] = struct{}{}
	}
}

// Has reports membership.
func (s SignatureSet) Has(sig Signature) bool {
	_, ok := s[sig]
	return ok
}

// Equal reports whether both sets hold the same members.
func (s SignatureSet) Equal(other SignatureSet) bool {
	if len(s) != len(other) {
		return false
	}
	for sig := range s {
		if !other.Has(sig) {
			return false
		}
	}
	return true
}

// Clone returns a copy of the set.
func (s SignatureSet) Clone() SignatureSet {
	return maps.Clone(s)
}

// Sorted returns the members in lexical order.
func (s SignatureSet) Sorted() []Signature {
	return slices.SortedFunc(maps.Keys(s), Signature.Compare)
}

// SignatureHashes maps signatures to the semantic hash observed for them.
type SignatureHashes map[Signature]Hash

// Keys returns the signatures as a set.
func (h SignatureHashes) Keys() SignatureSet {
	set := make(SignatureSet, len(h))
	for sig := range h {
		set[sig] = struct{}{}
	}
	return set
}

// Equal reports whether both maps hold the same signatures with the same hashes.
func (h SignatureHashes) Equal(other SignatureHashes) bool {
	return maps.Equal(h, other)
}

// Clone returns a copy of the map.
func (h SignatureHashes) Clone() SignatureHashes {
	return maps.Clone(h)
}

// Sorted returns the signatures in lexical order.
func (h SignatureHashes) Sorted() []Signature {
	return slices.SortedFunc(maps.Keys(h), Signature.Compare)
}

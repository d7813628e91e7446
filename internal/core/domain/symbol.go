package domain

import (
	"maps"
	"slices"
)

// DeclarationKind is the syntactic category of a declaration.
type DeclarationKind uint8

const (
	// KindFunction is a function declaration.
	KindFunction DeclarationKind = iota
	// KindProperty is a property declaration.
	KindProperty
	// KindClass is a class declaration.
	KindClass
	// KindAccessor is a property accessor.
	KindAccessor
)

// ParseDeclarationKind maps a kind name to its constant.
func ParseDeclarationKind(s string) (DeclarationKind, bool) {
	switch s {
	case "function", "fun":
		return KindFunction, true
	case "property", "val", "var":
		return KindProperty, true
	case "class":
		return KindClass, true
	case "accessor":
		return KindAccessor, true
	default:
		return 0, false
	}
}

// Declaration is one declaration materialized by the Loader.
type Declaration struct {
	Signature Signature
	Kind      DeclarationKind
	Inline    bool
	// Parent is the enclosing declaration of a member, zero for top-level declarations.
	Parent Signature
	// Header is the externally visible shape of the declaration.
	Header []byte
	// Body is the implementation. It only contributes to the semantic hash of inline declarations.
	Body []byte
	// References lists the signatures called or referenced by value from the body.
	References []Signature
}

// LoadedFile is the symbol information of one source file.
type LoadedFile struct {
	Key          FileKey
	// Path is the absolute path of the source file.
	Path         string
	Annotations  []byte
	Declarations []Declaration
	Imports      []Signature
}

// Declares reports whether the file defines sig.
func (f *LoadedFile) Declares(sig Signature) bool {
	for i := range f.Declarations {
		if f.Declarations[i].Signature == sig {
			return true
		}
	}
	return false
}

// SymbolGraph is the output of a Loader materialization.
type SymbolGraph struct {
	Files map[FileKey]*LoadedFile
	// Stubbed holds signatures that were referenced but could not be resolved and were
	// replaced by placeholders.
	Stubbed SignatureSet
}

// NewSymbolGraph returns an empty graph.
func NewSymbolGraph() *SymbolGraph {
	return &SymbolGraph{
		Files:   make(map[FileKey]*LoadedFile),
		Stubbed: make(SignatureSet),
	}
}

// Keys returns the loaded files in order.
func (g *SymbolGraph) Keys() []FileKey {
	return slices.SortedFunc(maps.Keys(g.Files), FileKey.Compare)
}

// LoadRequest asks the Loader for the symbol information of a set of files.
type LoadRequest struct {
	// Libraries are every library of the build, in dependency order.
	Libraries []*Library
	Files     []FileKey
	// Exports lists, per requested file, the signatures that files outside the request
	// consume from it.
	Exports map[FileKey]SignatureSet
	// Stubbed holds the signatures recorded as stubs by the previous build.
	Stubbed SignatureSet
}

// Package sighash computes semantic hashes of exported declarations.
//
// The hash of a declaration changes only when its externally observable shape changes, or,
// for inline declarations, when anything in the inlined call tree changes.
package sighash

import (
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/zerr"
)

type entry struct {
	owner domain.FileKey
	decl  *domain.Declaration
}

// mark is the state of a signature during one closure walk.
type mark uint8

const (
	visiting mark = iota + 1
	done
)

// Calculator hashes signatures declared by loaded files. Results are memoized for the
// lifetime of the Calculator, which is one invocation.
type Calculator struct {
	decls       map[domain.Signature]entry
	annotations map[domain.FileKey]domain.Hash
	flat        map[domain.Signature]domain.Hash
	memo        map[domain.Signature]domain.Hash
}

// New returns an empty Calculator.
func New() *Calculator {
	return &Calculator{
		decls:       make(map[domain.Signature]entry),
		annotations: make(map[domain.FileKey]domain.Hash),
		flat:        make(map[domain.Signature]domain.Hash),
		memo:        make(map[domain.Signature]domain.Hash),
	}
}

// AddGraph registers every file of g.
func (c *Calculator) AddGraph(g *domain.SymbolGraph) error {
	for _, key := range g.Keys() {
		if err := c.AddFile(g.Files[key]); err != nil {
			return err
		}
	}
	return nil
}

// AddFile registers the declarations of f. Registering the same file twice is a no-op.
func (c *Calculator) AddFile(f *domain.LoadedFile) error {
	if _, ok := c.annotations[f.Key]; ok {
		return nil
	}
	for i := range f.Declarations {
		d := &f.Declarations[i]
		if prev, ok := c.decls[d.Signature]; ok && prev.owner != f.Key {
			err := zerr.With(zerr.Wrap(domain.ErrDuplicateSignature, "failed to register file"), "signature", d.Signature.String())
			err = zerr.With(err, "file", f.Key.String())
			return zerr.With(err, "previous", prev.owner.String())
		}
		c.decls[d.Signature] = entry{owner: f.Key, decl: d}
	}
	c.annotations[f.Key] = domain.HashBytes(f.Annotations)
	return nil
}

// Contains reports whether sig is declared by a registered file.
func (c *Calculator) Contains(sig domain.Signature) bool {
	_, ok := c.decls[sig]
	return ok
}

// Owner returns the file declaring sig.
func (c *Calculator) Owner(sig domain.Signature) (domain.FileKey, bool) {
	e, ok := c.decls[sig]
	return e.owner, ok
}

// Parent returns the enclosing declaration of a member signature.
func (c *Calculator) Parent(sig domain.Signature) (domain.Signature, bool) {
	e, ok := c.decls[sig]
	if !ok || e.decl.Parent.IsZero() {
		return domain.Signature{}, false
	}
	return e.decl.Parent, true
}

// Hash returns the semantic hash of sig, or false when no registered file declares it.
func (c *Calculator) Hash(sig domain.Signature) (domain.Hash, bool) {
	if h, ok := c.memo[sig]; ok {
		return h, true
	}
	e, ok := c.decls[sig]
	if !ok {
		return domain.Hash{}, false
	}

	h := c.flatHash(sig, e)
	if e.decl.Inline {
		h = h.Combine(c.inlineClosure(sig))
	}

	c.memo[sig] = h
	return h, true
}

// flatHash combines the owner's annotation hash with the declaration content.
func (c *Calculator) flatHash(sig domain.Signature, e entry) domain.Hash {
	if h, ok := c.flat[sig]; ok {
		return h
	}
	h := c.annotations[e.owner].Combine(contentHash(e.decl))
	c.flat[sig] = h
	return h
}

// inlineClosure merges the flat hashes of every inline declaration reachable from root.
// Unresolved references contribute a marker so that a stub becoming available changes
// the result.
func (c *Calculator) inlineClosure(root domain.Signature) domain.Hash {
	marks := make(map[domain.Signature]mark)
	var acc domain.Hash

	var walk func(sig domain.Signature)
	walk = func(sig domain.Signature) {
		if _, seen := marks[sig]; seen {
			return
		}
		marks[sig] = visiting

		e, ok := c.decls[sig]
		if !ok {
			acc = acc.Merge(unresolvedHash(sig))
			marks[sig] = done
			return
		}
		if !e.decl.Inline {
			marks[sig] = done
			return
		}

		flat := c.flatHash(sig, e)
		if sig != root {
			acc = acc.Merge(flat)
		}
		for _, ref := range e.decl.References {
			walk(ref)
		}
		marks[sig] = done
	}

	walk(root)
	return acc
}

func contentHash(d *domain.Declaration) domain.Hash {
	b := domain.NewHashBuilder().
		Uint64(uint64(d.Kind)).
		String(d.Signature.String()).
		String(d.Parent.String()).
		Bytes(d.Header)
	if d.Inline {
		b.Uint64(1).Bytes(d.Body)
	} else {
		b.Uint64(0)
	}
	return b.Sum()
}

func unresolvedHash(sig domain.Signature) domain.Hash {
	return domain.NewHashBuilder().String("unresolved").String(sig.String()).Sum()
}

package invalidation

import (
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/zerr"
)

// rebuiltFile is a file of the current round with its metadata before and after the rebuild.
type rebuiltFile struct {
	old *domain.SourceFileMetadata
	md  *domain.SourceFileMetadata
}

// importState tracks whether a dependent saw any imported hash change.
type importState uint8

const (
	importsUnknown importState = iota
	importsUnchanged
	importsModified
)

// update is the pending metadata change of a file outside the round.
type update struct {
	oldExports domain.SignatureSet
	md         *domain.SourceFileMetadata
	imports    importState
}

func (u *update) exportsChanged() bool {
	return !u.oldExports.Equal(u.md.ExportedSignatures())
}

// rebuild recomputes the metadata of every file of the round from the loaded symbols.
func (r *run) rebuild(symbols *domain.SymbolGraph, round []domain.FileID) (map[domain.FileID]*rebuiltFile, error) {
	rebuilt := make(map[domain.FileID]*rebuiltFile, len(round))
	for _, id := range round {
		old, err := r.g.Fetch(id)
		if err != nil {
			return nil, err
		}
		rebuilt[id] = &rebuiltFile{old: old, md: domain.NewSourceFileMetadata()}
	}

	for _, id := range round {
		key := r.g.Key(id)
		f := symbols.Files[key]
		md := rebuilt[id].md

		// Inverse edges of importers outside the round follow the signature to its
		// current owner.
		x := r.dirty[id]
		for _, importer := range domain.SortedIDs(x) {
			for _, sig := range x[importer].Sorted() {
				owner := id
				if ownerKey, ok := r.calc.Owner(sig); ok {
					owner = r.g.ID(ownerKey)
				}
				if dst, ok := rebuilt[owner]; ok {
					dst.md.AddInverse(importer, sig)
				}
			}
		}

		for _, sig := range r.imported(f).Sorted() {
			ownerKey, ok := r.calc.Owner(sig)
			if !ok || ownerKey == key {
				continue
			}
			h, ok := r.calc.Hash(sig)
			if !ok {
				err := zerr.Wrap(domain.ErrInternalInconsistency, "imported signature has no hash")
				err = zerr.With(err, "file", key.String())
				return nil, zerr.With(err, "signature", sig.String())
			}
			owner := r.g.ID(ownerKey)
			md.AddDirect(owner, sig, h)
			if dst, ok := rebuilt[owner]; ok {
				dst.md.AddInverse(id, sig)
			}
		}
	}

	for _, id := range round {
		r.g.Update(id, rebuilt[id].md)
	}
	return rebuilt, nil
}

// imported returns the signatures f takes from other files: its imports and the references
// of its declarations, including the parents of imported members.
func (r *run) imported(f *domain.LoadedFile) domain.SignatureSet {
	set := make(domain.SignatureSet, len(f.Imports))
	add := func(sig domain.Signature) {
		if f.Declares(sig) {
			return
		}
		set.Add(sig)
		if parent, ok := r.calc.Parent(sig); ok && !f.Declares(parent) {
			set.Add(parent)
		}
	}
	for _, sig := range f.Imports {
		add(sig)
	}
	for i := range f.Declarations {
		for _, ref := range f.Declarations[i].References {
			add(ref)
		}
	}
	return set
}

// fallout computes how the rebuilt files affect the files around them: exporters whose
// consumed set changed and dependents whose imported hashes changed.
func (r *run) fallout(rebuilt map[domain.FileID]*rebuiltFile) (map[domain.FileID]*update, error) {
	updates := make(map[domain.FileID]*update)
	get := func(id domain.FileID) (*update, error) {
		if u, ok := updates[id]; ok {
			return u, nil
		}
		md, err := r.g.Fetch(id)
		if err != nil {
			return nil, err
		}
		u := &update{oldExports: md.ExportedSignatures(), md: md.Clone()}
		updates[id] = u
		return u, nil
	}

	for _, id := range domain.SortedIDs(rebuilt) {
		rf := rebuilt[id]
		if !rf.old.ExportedSignatures().Equal(rf.md.ExportedSignatures()) {
			r.diag.Tag(r.g.Key(id), domain.StateExportsUpdated)
		}

		// Exporters, including the ones this file stopped importing from.
		exporters := make(map[domain.FileID]struct{})
		for exporter := range rf.old.Direct {
			exporters[exporter] = struct{}{}
		}
		for exporter := range rf.md.Direct {
			exporters[exporter] = struct{}{}
		}
		for _, exporter := range domain.SortedIDs(exporters) {
			if _, ok := rebuilt[exporter]; ok || r.g.IsRemoved(exporter) || !r.inBuild(exporter) {
				continue
			}
			u, err := get(exporter)
			if err != nil {
				return nil, err
			}
			if sigs, ok := rf.md.Direct[exporter]; ok {
				u.md.Inverse[id] = sigs.Keys()
			} else {
				delete(u.md.Inverse, id)
			}
		}

		// Dependents outside the dirty set.
		dependents := make(map[domain.FileID]struct{})
		for importer := range rf.md.Inverse {
			dependents[importer] = struct{}{}
		}
		for importer := range r.dirty[id] {
			dependents[importer] = struct{}{}
		}
		for _, importer := range domain.SortedIDs(dependents) {
			if r.isDirty(importer) || r.g.IsRemoved(importer) || !r.inBuild(importer) {
				continue
			}
			u, err := get(importer)
			if err != nil {
				return nil, err
			}
			if u.imports == importsModified {
				continue
			}
			r.checkImports(u, id)
		}
	}
	return updates, nil
}

// checkImports compares what the dependent recorded for exporter against the current hashes.
// Signatures that moved to another file with an unchanged hash are re-pointed in place.
func (r *run) checkImports(u *update, exporter domain.FileID) {
	seen, ok := u.md.Direct[exporter]
	if !ok {
		return
	}

	moved := make(map[domain.FileID]domain.SignatureHashes)
	for _, sig := range seen.Sorted() {
		ownerKey, ok := r.calc.Owner(sig)
		if !ok {
			u.imports = importsModified
			return
		}
		h, _ := r.calc.Hash(sig)
		if h != seen[sig] {
			u.imports = importsModified
			return
		}
		if owner := r.g.ID(ownerKey); owner != exporter {
			if moved[owner] == nil {
				moved[owner] = make(domain.SignatureHashes)
			}
			moved[owner][sig] = h
		}
	}

	for owner, sigs := range moved {
		for sig, h := range sigs {
			delete(seen, sig)
			u.md.AddDirect(owner, sig, h)
		}
	}
	if len(seen) == 0 {
		delete(u.md.Direct, exporter)
	}
	u.imports = importsUnchanged
}

// schedule queues the files that have to be rebuilt in the next round and updates the
// metadata of the others in place.
func (r *run) schedule(updates map[domain.FileID]*update) []domain.FileID {
	var next []domain.FileID
	for _, id := range domain.SortedIDs(updates) {
		u := updates[id]
		key := r.g.Key(id)
		exportsChanged := u.exportsChanged()
		if exportsChanged {
			r.diag.Tag(key, domain.StateExportsUpdated)
		}
		if u.imports == importsModified {
			r.diag.Tag(key, domain.StateImportsUpdated)
		}

		if r.isDirty(id) || (!exportsChanged && u.imports != importsModified) {
			r.g.Update(id, u.md)
			continue
		}

		r.dirty[id] = inverseExports(u.md)
		next = append(next, id)
	}
	return next
}

// resolvedStubs queues clean files that depended on a stub whose signature is now declared.
func (r *run) resolvedStubs() ([]domain.FileID, error) {
	var next []domain.FileID
	for _, key := range sortedKeys(r.in.Stubs) {
		id := r.g.ID(key)
		if r.isDirty(id) || r.g.IsRemoved(id) || !r.inBuild(id) {
			continue
		}
		resolved := false
		for sig := range r.in.Stubs[key] {
			if r.calc.Contains(sig) {
				resolved = true
				break
			}
		}
		if !resolved {
			continue
		}
		md, err := r.g.Fetch(id)
		if err != nil {
			return nil, err
		}
		r.dirty[id] = inverseExports(md)
		r.diag.Tag(key, domain.StateImportsUpdated)
		next = append(next, id)
	}
	return next, nil
}

func inverseExports(md *domain.SourceFileMetadata) exports {
	x := make(exports, len(md.Inverse))
	for importer, sigs := range md.Inverse {
		x[importer] = sigs.Clone()
	}
	return x
}

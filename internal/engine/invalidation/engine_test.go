package invalidation_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stale/internal/adapters/fs"
	"go.trai.ch/stale/internal/adapters/klib"
	"go.trai.ch/stale/internal/adapters/telemetry"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/stale/internal/core/ports/mocks"
	"go.trai.ch/stale/internal/engine/depgraph"
	"go.trai.ch/stale/internal/engine/fingerprint"
	"go.trai.ch/stale/internal/engine/invalidation"
	"go.uber.org/mock/gomock"
)

// keyedMetadata is metadata as persisted: edges by FileKey instead of table slots.
type keyedMetadata struct {
	direct  map[domain.FileKey]domain.SignatureHashes
	inverse map[domain.FileKey]domain.SignatureSet
}

// memStore keeps committed state between runs.
type memStore struct {
	headers map[domain.LibraryPath]domain.LibraryHeader
	meta    map[domain.FileKey]keyedMetadata
	stubs   map[domain.FileKey]domain.SignatureSet
}

func newMemStore() *memStore {
	return &memStore{
		headers: make(map[domain.LibraryPath]domain.LibraryHeader),
		meta:    make(map[domain.FileKey]keyedMetadata),
		stubs:   make(map[domain.FileKey]domain.SignatureSet),
	}
}

func (s *memStore) ReadMetadata(
	key domain.FileKey,
	table *domain.FileTable,
) (domain.Lookup[*domain.SourceFileMetadata], error) {
	km, ok := s.meta[key]
	if !ok {
		return domain.NotFound[*domain.SourceFileMetadata](), nil
	}
	md := domain.NewSourceFileMetadata()
	for k, sigs := range km.direct {
		md.Direct[table.Intern(k)] = sigs.Clone()
	}
	for k, sigs := range km.inverse {
		md.Inverse[table.Intern(k)] = sigs.Clone()
	}
	return domain.Found(md), nil
}

func (s *memStore) commit(table *domain.FileTable, libs []*domain.Library, res *invalidation.Result) {
	for key, md := range res.Metadata {
		km := keyedMetadata{
			direct:  make(map[domain.FileKey]domain.SignatureHashes),
			inverse: make(map[domain.FileKey]domain.SignatureSet),
		}
		for id, sigs := range md.Direct {
			km.direct[table.Key(id)] = sigs.Clone()
		}
		for id, sigs := range md.Inverse {
			km.inverse[table.Key(id)] = sigs.Clone()
		}
		s.meta[key] = km
	}
	for _, key := range res.Removed {
		delete(s.meta, key)
		delete(s.stubs, key)
	}
	for lib, files := range res.Stubs {
		for key := range s.stubs {
			if key.Library == lib {
				delete(s.stubs, key)
			}
		}
		for src, sigs := range files {
			s.stubs[domain.FileKey{Library: lib, Source: src}] = sigs
		}
	}

	current := make(map[domain.LibraryPath]struct{}, len(libs))
	for _, lib := range libs {
		current[lib.Path] = struct{}{}
		s.headers[lib.Path] = lib.Header()
	}
	for path := range s.headers {
		if _, ok := current[path]; !ok {
			delete(s.headers, path)
		}
	}
}

// assertSymmetric checks that every direct edge at rest has its inverse and vice versa.
func (s *memStore) assertSymmetric(t *testing.T) {
	t.Helper()
	for a, md := range s.meta {
		for b, sigs := range md.direct {
			assert.True(t, sigs.Keys().Equal(s.meta[b].inverse[a]), "inverse of %s -> %s", a, b)
		}
		for b, sigs := range md.inverse {
			assert.True(t, sigs.Equal(s.meta[b].direct[a].Keys()), "direct of %s -> %s", b, a)
		}
	}
}

type harness struct {
	t      *testing.T
	root   string
	libs   []string
	store  *memStore
	loader *klib.Loader
}

func newHarness(t *testing.T, libs ...string) *harness {
	t.Helper()
	loader, err := klib.NewLoader(0)
	require.NoError(t, err)
	return &harness{t: t, root: t.TempDir(), libs: libs, store: newMemStore(), loader: loader}
}

func (h *harness) write(lib, name, content string) {
	h.t.Helper()
	path := filepath.Join(h.root, lib, name)
	require.NoError(h.t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(h.t, os.WriteFile(path, []byte(content), domain.PrivateFilePerm))
}

func (h *harness) remove(lib, name string) {
	h.t.Helper()
	require.NoError(h.t, os.Remove(filepath.Join(h.root, lib, name)))
}

func (h *harness) input(table *domain.FileTable) (invalidation.Input, []*domain.Library) {
	h.t.Helper()
	reader := klib.NewReader(fs.NewWalker(), fs.NewHasher())
	in := invalidation.Input{Stubs: make(map[domain.FileKey]domain.SignatureSet)}
	current := make(map[domain.LibraryPath]struct{})
	for _, p := range h.libs {
		lib, err := reader.Read(context.Background(), h.root, domain.NewLibraryPath(p))
		require.NoError(h.t, err)
		current[lib.Path] = struct{}{}
		in.Libraries = append(in.Libraries, lib)

		prior := domain.NotFound[domain.LibraryHeader]()
		if header, ok := h.store.headers[lib.Path]; ok {
			prior = domain.Found(header)
		}
		in.Changes = append(in.Changes, fingerprint.Classify(lib, prior))
	}
	for path, header := range h.store.headers {
		if _, ok := current[path]; ok {
			continue
		}
		files := make([]domain.SourcePath, 0, len(header.Files))
		for _, f := range header.Files {
			files = append(files, f.Source)
		}
		in.Changes = append(in.Changes, fingerprint.ClassifyOrphan(path, files))
	}
	for key, sigs := range h.store.stubs {
		in.Stubs[key] = sigs
	}

	g, err := depgraph.New(table, h.store, 0)
	require.NoError(h.t, err)
	in.Graph = g
	return in, in.Libraries
}

// build runs an invalidation and commits its outcome.
func (h *harness) build() *invalidation.Result {
	h.t.Helper()
	table := domain.NewFileTable()
	in, libs := h.input(table)
	res, err := invalidation.New(h.loader, telemetry.NewNoOpTracer()).Run(context.Background(), in)
	require.NoError(h.t, err)
	h.store.commit(table, libs, res)
	h.store.assertSymmetric(h.t)
	return res
}

func fk(lib, src string) domain.FileKey { return domain.NewFileKey(lib, src) }

func sig(s string) domain.Signature { return domain.NewSignature(s) }

const (
	unitFoo = `
declarations:
  - signature: core.foo
    header: "fun foo(): Int"
    body: "return 1"
`
	unitUsesFoo = `
imports: [core.foo]
declarations:
  - signature: core.b
    header: "fun b()"
`
)

// fooAndUser is the library L = {A exports foo, B imports foo}.
func fooAndUser(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, "core")
	h.write("core", "a.unit.yaml", unitFoo)
	h.write("core", "b.unit.yaml", unitUsesFoo)
	return h
}

func TestRun_FirstBuildCompilesEverything(t *testing.T) {
	h := fooAndUser(t)
	res := h.build()

	assert.Equal(t, []domain.FileKey{fk("core", "a.unit.yaml"), fk("core", "b.unit.yaml")}, res.Dirty())
	diag := res.Diagnostics()
	assert.True(t, diag[fk("core", "a.unit.yaml")].Has(domain.StateAdded))
	assert.True(t, diag[fk("core", "b.unit.yaml")].Has(domain.StateAdded))

	b := h.store.meta[fk("core", "b.unit.yaml")]
	assert.True(t, b.direct[fk("core", "a.unit.yaml")].Keys().Equal(domain.NewSignatureSet(sig("core.foo"))))
	assert.Contains(t, res.Symbols.Files, fk("core", "b.unit.yaml"))
}

func TestRun_UnchangedRebuildIsEmpty(t *testing.T) {
	h := fooAndUser(t)
	h.build()

	res := h.build()
	assert.Empty(t, res.Dirty())
	assert.Empty(t, res.Diagnostics())
	assert.Empty(t, res.Metadata)
	assert.Zero(t, res.Rounds)

	// Idempotent across further runs as well.
	assert.Empty(t, h.build().Dirty())
}

func TestRun_BodyOnlyEdit(t *testing.T) {
	h := fooAndUser(t)
	h.build()

	h.write("core", "a.unit.yaml", `
declarations:
  - signature: core.foo
    header: "fun foo(): Int"
    body: "return 2"
`)
	res := h.build()

	assert.Equal(t, []domain.FileKey{fk("core", "a.unit.yaml")}, res.Dirty())
	assert.NotContains(t, res.Diagnostics(), fk("core", "b.unit.yaml"))
	assert.Zero(t, res.Rounds)
}

func TestRun_SignatureEdit(t *testing.T) {
	h := fooAndUser(t)
	h.build()

	h.write("core", "a.unit.yaml", `
declarations:
  - signature: core.foo
    header: "fun foo(): Long"
    body: "return 1"
`)
	res := h.build()

	assert.Equal(t, []domain.FileKey{fk("core", "a.unit.yaml"), fk("core", "b.unit.yaml")}, res.Dirty())
	assert.Equal(t, 1, res.Rounds)
	b := res.Diagnostics()[fk("core", "b.unit.yaml")]
	assert.True(t, b.Has(domain.StateImportsUpdated))
	assert.True(t, b.Has(domain.StateUnmodified))
	assert.Equal(t, map[domain.LibraryPath][]domain.SourcePath{
		domain.NewLibraryPath("core"): {domain.NewSourcePath("a.unit.yaml"), domain.NewSourcePath("b.unit.yaml")},
	}, res.DirtySet())

	// The recorded hash follows the new shape.
	assert.Empty(t, h.build().Dirty())
}

func TestRun_NewUnrelatedFile(t *testing.T) {
	h := fooAndUser(t)
	h.build()

	h.write("core", "c.unit.yaml", `
declarations:
  - signature: core.c
    header: "fun c()"
`)
	res := h.build()

	assert.Equal(t, []domain.FileKey{fk("core", "c.unit.yaml")}, res.Dirty())
	assert.NotContains(t, res.Metadata, fk("core", "a.unit.yaml"))
	assert.NotContains(t, res.Metadata, fk("core", "b.unit.yaml"))
}

func TestRun_DeletionPropagatesAndStubResolves(t *testing.T) {
	h := fooAndUser(t)
	h.build()

	h.remove("core", "a.unit.yaml")
	res := h.build()

	assert.Equal(t, []domain.FileKey{fk("core", "a.unit.yaml")}, res.Removed)
	assert.Equal(t, []domain.FileKey{fk("core", "b.unit.yaml")}, res.Dirty())
	assert.True(t, res.Diagnostics()[fk("core", "b.unit.yaml")].Has(domain.StateRemovedDirectDepends))
	assert.True(t, res.Diagnostics()[fk("core", "a.unit.yaml")].Has(domain.StateRemoved))
	assert.NotContains(t, h.store.meta, fk("core", "a.unit.yaml"))
	assert.True(t, h.store.stubs[fk("core", "b.unit.yaml")].Equal(domain.NewSignatureSet(sig("core.foo"))))

	// foo comes back in another file: b is revalidated although it did not change.
	h.write("core", "c.unit.yaml", unitFoo)
	res = h.build()

	assert.Equal(t, []domain.FileKey{fk("core", "b.unit.yaml"), fk("core", "c.unit.yaml")}, res.Dirty())
	assert.True(t, res.Diagnostics()[fk("core", "b.unit.yaml")].Has(domain.StateImportsUpdated))
	assert.NotContains(t, h.store.stubs, fk("core", "b.unit.yaml"))
	assert.Contains(t, h.store.meta[fk("core", "b.unit.yaml")].direct, fk("core", "c.unit.yaml"))

	assert.Empty(t, h.build().Dirty())
}

func TestRun_RemovedExporterOfRemovedFile(t *testing.T) {
	h := fooAndUser(t)
	h.build()

	h.remove("core", "b.unit.yaml")
	res := h.build()

	assert.Equal(t, []domain.FileKey{fk("core", "a.unit.yaml")}, res.Dirty())
	a := res.Diagnostics()[fk("core", "a.unit.yaml")]
	assert.True(t, a.Has(domain.StateRemovedInverseDepends))
	assert.Empty(t, h.store.meta[fk("core", "a.unit.yaml")].inverse)
}

func TestRun_SymbolRelocation(t *testing.T) {
	h := newHarness(t, "core")
	h.write("core", "a.unit.yaml", `
declarations:
  - signature: core.foo
    header: "fun foo(): Int"
  - signature: core.bar
    header: "fun bar()"
`)
	h.write("core", "b.unit.yaml", unitUsesFoo)
	h.build()

	h.write("core", "a.unit.yaml", `
declarations:
  - signature: core.bar
    header: "fun bar()"
`)
	h.write("core", "c.unit.yaml", `
declarations:
  - signature: core.foo
    header: "fun foo(): Int"
`)
	res := h.build()

	assert.Equal(t, []domain.FileKey{fk("core", "a.unit.yaml"), fk("core", "c.unit.yaml")}, res.Dirty())
	b := h.store.meta[fk("core", "b.unit.yaml")]
	assert.NotContains(t, b.direct, fk("core", "a.unit.yaml"))
	assert.True(t, b.direct[fk("core", "c.unit.yaml")].Keys().Equal(domain.NewSignatureSet(sig("core.foo"))))

	assert.Empty(t, h.build().Dirty())
}

func TestRun_InlineChangesRippleThroughRounds(t *testing.T) {
	h := newHarness(t, "core")
	h.write("core", "a.unit.yaml", `
declarations:
  - signature: core.inl
    inline: true
    header: "inline fun inl()"
    body: "1"
`)
	h.write("core", "b.unit.yaml", `
imports: [core.inl]
declarations:
  - signature: core.wrap
    inline: true
    header: "inline fun wrap()"
    body: "inl()"
    references: [core.inl]
`)
	h.write("core", "c.unit.yaml", `
imports: [core.wrap]
declarations:
  - signature: core.c
    header: "fun c()"
`)
	h.build()

	h.write("core", "a.unit.yaml", `
declarations:
  - signature: core.inl
    inline: true
    header: "inline fun inl()"
    body: "2"
`)
	res := h.build()

	assert.Equal(t, []domain.FileKey{fk("core", "a.unit.yaml"), fk("core", "b.unit.yaml"), fk("core", "c.unit.yaml")}, res.Dirty())
	assert.Equal(t, 2, res.Rounds)
	for _, key := range []domain.FileKey{fk("core", "b.unit.yaml"), fk("core", "c.unit.yaml")} {
		assert.True(t, res.Diagnostics()[key].Has(domain.StateImportsUpdated), key.String())
		assert.Contains(t, res.Symbols.Files, key)
	}

	assert.Empty(t, h.build().Dirty())
}

func TestRun_ReferencesWithoutImportsAreDependencies(t *testing.T) {
	h := newHarness(t, "core")
	h.write("core", "a.unit.yaml", `
declarations:
  - signature: core.inl
    inline: true
    header: "inline fun inl()"
    body: "1"
  - signature: core.plain
    header: "fun plain(): Int"
`)
	h.write("core", "b.unit.yaml", `
declarations:
  - signature: core.wrap
    inline: true
    header: "inline fun wrap()"
    body: "inl()"
    references: [core.inl]
`)
	h.write("core", "c.unit.yaml", `
imports: [core.wrap]
declarations:
  - signature: core.c
    header: "fun c()"
`)
	h.write("core", "d.unit.yaml", `
declarations:
  - signature: core.d
    header: "fun d()"
    body: "plain()"
    references: [core.plain]
`)
	h.build()
	assert.Contains(t, h.store.meta[fk("core", "b.unit.yaml")].direct[fk("core", "a.unit.yaml")], sig("core.inl"))
	assert.Contains(t, h.store.meta[fk("core", "d.unit.yaml")].direct[fk("core", "a.unit.yaml")], sig("core.plain"))

	t.Run("inline body change reaches importers of the referencing file", func(t *testing.T) {
		h.write("core", "a.unit.yaml", `
declarations:
  - signature: core.inl
    inline: true
    header: "inline fun inl()"
    body: "2"
  - signature: core.plain
    header: "fun plain(): Int"
`)
		res := h.build()
		assert.Equal(t, []domain.FileKey{fk("core", "a.unit.yaml"), fk("core", "b.unit.yaml"), fk("core", "c.unit.yaml")}, res.Dirty())
		assert.Empty(t, h.build().Dirty())
	})

	t.Run("header change of a referenced function dirties the caller", func(t *testing.T) {
		h.write("core", "a.unit.yaml", `
declarations:
  - signature: core.inl
    inline: true
    header: "inline fun inl()"
    body: "2"
  - signature: core.plain
    header: "fun plain(): Long"
`)
		res := h.build()
		assert.Equal(t, []domain.FileKey{fk("core", "a.unit.yaml"), fk("core", "d.unit.yaml")}, res.Dirty())
		assert.True(t, res.Diagnostics()[fk("core", "d.unit.yaml")].Has(domain.StateImportsUpdated))
	})
}

func TestRun_NewlyConsumedExportDirtiesExporter(t *testing.T) {
	h := newHarness(t, "core")
	h.write("core", "a.unit.yaml", `
declarations:
  - signature: core.foo
    header: "fun foo()"
  - signature: core.bar
    header: "fun bar()"
`)
	h.write("core", "b.unit.yaml", unitUsesFoo)
	h.build()

	h.write("core", "b.unit.yaml", `
imports: [core.foo, core.bar]
declarations:
  - signature: core.b
    header: "fun b()"
`)
	res := h.build()

	assert.Equal(t, []domain.FileKey{fk("core", "a.unit.yaml"), fk("core", "b.unit.yaml")}, res.Dirty())
	assert.True(t, res.Diagnostics()[fk("core", "a.unit.yaml")].Has(domain.StateExportsUpdated))
	assert.True(t, h.store.meta[fk("core", "a.unit.yaml")].inverse[fk("core", "b.unit.yaml")].Equal(
		domain.NewSignatureSet(sig("core.foo"), sig("core.bar"))))
}

func TestRun_MemberImportRecordsParent(t *testing.T) {
	h := newHarness(t, "core")
	h.write("core", "a.unit.yaml", `
declarations:
  - signature: core.Box
    kind: class
    header: "class Box"
  - signature: core.Box.get
    parent: core.Box
    header: "fun get(): Int"
`)
	h.write("core", "b.unit.yaml", `
imports: [core.Box.get]
`)
	h.build()

	b := h.store.meta[fk("core", "b.unit.yaml")]
	assert.True(t, b.direct[fk("core", "a.unit.yaml")].Keys().Equal(
		domain.NewSignatureSet(sig("core.Box"), sig("core.Box.get"))))

	h.write("core", "a.unit.yaml", `
declarations:
  - signature: core.Box
    kind: class
    header: "open class Box"
  - signature: core.Box.get
    parent: core.Box
    header: "fun get(): Int"
`)
	assert.Equal(t, []domain.FileKey{fk("core", "a.unit.yaml"), fk("core", "b.unit.yaml")}, h.build().Dirty())
}

func TestRun_LibraryLeavesBuild(t *testing.T) {
	h := newHarness(t, "core", "extra")
	h.write("core", "a.unit.yaml", unitFoo)
	h.write("extra", "e.unit.yaml", unitUsesFoo)
	h.build()

	h.libs = []string{"core"}
	res := h.build()

	assert.Equal(t, []domain.FileKey{fk("extra", "e.unit.yaml")}, res.Removed)
	assert.Equal(t, []domain.FileKey{fk("core", "a.unit.yaml")}, res.Dirty())
	assert.NotContains(t, h.store.headers, domain.NewLibraryPath("extra"))
}

func TestRun_Errors(t *testing.T) {
	newInput := func(t *testing.T) invalidation.Input {
		t.Helper()
		g, err := depgraph.New(domain.NewFileTable(), newMemStore(), 0)
		require.NoError(t, err)
		return invalidation.Input{
			Libraries: []*domain.Library{{Path: domain.NewLibraryPath("core")}},
			Graph:     g,
		}
	}

	t.Run("dirty file outside the build", func(t *testing.T) {
		in := newInput(t)
		in.Changes = []domain.Classification{{
			Library: domain.NewLibraryPath("gone"),
			Added:   []domain.SourcePath{domain.NewSourcePath("x.unit.yaml")},
		}}
		ctrl := gomock.NewController(t)
		_, err := invalidation.New(mocks.NewMockLoader(ctrl), telemetry.NewNoOpTracer()).Run(context.Background(), in)
		require.ErrorIs(t, err, domain.ErrInternalInconsistency)
	})

	t.Run("loader failure", func(t *testing.T) {
		in := newInput(t)
		in.Changes = []domain.Classification{{
			Library: domain.NewLibraryPath("core"),
			Added:   []domain.SourcePath{domain.NewSourcePath("x.unit.yaml")},
		}}
		ctrl := gomock.NewController(t)
		loader := mocks.NewMockLoader(ctrl)
		loader.EXPECT().Materialize(gomock.Any(), gomock.Any()).Return(nil, assert.AnError)

		_, err := invalidation.New(loader, telemetry.NewNoOpTracer()).Run(context.Background(), in)
		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("dirty file missing from the symbol graph", func(t *testing.T) {
		in := newInput(t)
		in.Changes = []domain.Classification{{
			Library:  domain.NewLibraryPath("core"),
			Modified: []domain.SourcePath{domain.NewSourcePath("x.unit.yaml")},
		}}
		ctrl := gomock.NewController(t)
		loader := mocks.NewMockLoader(ctrl)
		loader.EXPECT().Materialize(gomock.Any(), gomock.Any()).Return(domain.NewSymbolGraph(), nil)

		_, err := invalidation.New(loader, telemetry.NewNoOpTracer()).Run(context.Background(), in)
		require.ErrorIs(t, err, domain.ErrInternalInconsistency)
	})
}

func TestRun_StagesAreTraced(t *testing.T) {
	h := fooAndUser(t)
	table := domain.NewFileTable()
	in, _ := h.input(table)

	ctrl := gomock.NewController(t)
	tracer := mocks.NewMockTracer(ctrl)
	span := mocks.NewMockSpan(ctrl)
	var names []string
	tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, name string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			names = append(names, name)
			return ctx, span
		}).AnyTimes()
	span.EXPECT().End().AnyTimes()

	_, err := invalidation.New(h.loader, tracer).Run(context.Background(), in)
	require.NoError(t, err)
	assert.Contains(t, names, "invalidation: collecting modified files")
	assert.Contains(t, names, "invalidation: loading modified files")
	assert.Contains(t, names, "invalidation (0): updating the dependency graph")
}

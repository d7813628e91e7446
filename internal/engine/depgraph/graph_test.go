package depgraph_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports/mocks"
	"go.trai.ch/stale/internal/engine/depgraph"
	"go.uber.org/mock/gomock"
)

var (
	keyA = domain.NewFileKey("core", "a")
	keyB = domain.NewFileKey("core", "b")
	keyC = domain.NewFileKey("core", "c")
	foo  = domain.NewSignature("foo")
	bar  = domain.NewSignature("bar")
)

func newGraph(t *testing.T, reader *mocks.MockMetadataReader) (*depgraph.Graph, *domain.FileTable) {
	t.Helper()
	table := domain.NewFileTable()
	g, err := depgraph.New(table, reader, 0)
	require.NoError(t, err)
	return g, table
}

func TestGraph_LookupCachesReads(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockMetadataReader(ctrl)
	g, table := newGraph(t, reader)

	md := domain.NewSourceFileMetadata()
	md.AddInverse(table.Intern(keyB), foo)
	reader.EXPECT().ReadMetadata(keyA, table).Return(domain.Found(md), nil).Times(1)

	a := g.ID(keyA)
	for range 3 {
		got, err := g.Lookup(a)
		require.NoError(t, err)
		v, ok := got.Get()
		require.True(t, ok)
		assert.Same(t, md, v)
	}
}

func TestGraph_FetchMissingIsEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockMetadataReader(ctrl)
	g, table := newGraph(t, reader)
	reader.EXPECT().ReadMetadata(keyA, table).Return(domain.NotFound[*domain.SourceFileMetadata](), nil)

	md, err := g.Fetch(g.ID(keyA))
	require.NoError(t, err)
	assert.True(t, md.IsEmpty())
	assert.False(t, g.IsUpdated(g.ID(keyA)))
}

func TestGraph_ReadErrorNamesFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockMetadataReader(ctrl)
	g, table := newGraph(t, reader)
	reader.EXPECT().ReadMetadata(keyA, table).Return(domain.NotFound[*domain.SourceFileMetadata](), domain.ErrCacheCorrupt)

	_, err := g.Fetch(g.ID(keyA))
	require.ErrorIs(t, err, domain.ErrCacheCorrupt)
}

func TestGraph_UpdateAndRemove(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockMetadataReader(ctrl)
	g, _ := newGraph(t, reader)

	a, b := g.ID(keyA), g.ID(keyB)
	md := domain.NewSourceFileMetadata()
	md.AddDirect(b, foo, domain.HashString("foo"))
	g.Update(a, md)

	got, err := g.Fetch(a)
	require.NoError(t, err)
	assert.Same(t, md, got)
	assert.Equal(t, []domain.FileID{a}, g.Touched())

	g.Remove(a)
	res, err := g.Lookup(a)
	require.NoError(t, err)
	assert.Equal(t, domain.LookupRemoved, res.Status())
	assert.True(t, g.IsRemoved(a))
	assert.Empty(t, g.Touched())
	assert.Equal(t, []domain.FileID{a}, g.Removed())
}

func TestGraph_SetInverse(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockMetadataReader(ctrl)
	g, table := newGraph(t, reader)

	a, b := g.ID(keyA), g.ID(keyB)
	persisted := domain.NewSourceFileMetadata()
	persisted.AddInverse(b, foo)
	reader.EXPECT().ReadMetadata(keyA, table).Return(domain.Found(persisted), nil)

	// Unchanged edge leaves the record clean.
	require.NoError(t, g.SetInverse(a, b, domain.NewSignatureSet(foo)))
	assert.False(t, g.IsUpdated(a))

	require.NoError(t, g.SetInverse(a, b, domain.NewSignatureSet(foo, bar)))
	assert.True(t, g.IsUpdated(a))
	md, err := g.Fetch(a)
	require.NoError(t, err)
	assert.True(t, md.Inverse[b].Equal(domain.NewSignatureSet(foo, bar)))
	assert.True(t, persisted.Inverse[b].Equal(domain.NewSignatureSet(foo)), "persisted record must not be mutated")

	require.NoError(t, g.SetInverse(a, b, nil))
	md, err = g.Fetch(a)
	require.NoError(t, err)
	assert.NotContains(t, md.Inverse, b)
}

func TestGraph_SetInverseOnRemovedExporter(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockMetadataReader(ctrl)
	g, _ := newGraph(t, reader)

	a, b := g.ID(keyA), g.ID(keyB)
	g.Remove(a)
	require.NoError(t, g.SetInverse(a, b, domain.NewSignatureSet(foo)))
	assert.False(t, g.IsUpdated(a))
}

func TestGraph_Reconcile(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockMetadataReader(ctrl)
	g, table := newGraph(t, reader)

	a, b, c := g.ID(keyA), g.ID(keyB), g.ID(keyC)

	// b used to import bar from a; c claims to import foo from a but its record says otherwise.
	persistedA := domain.NewSourceFileMetadata()
	persistedA.AddInverse(b, bar)
	persistedA.AddInverse(c, foo)
	reader.EXPECT().ReadMetadata(keyA, table).Return(domain.Found(persistedA), nil)
	reader.EXPECT().ReadMetadata(keyC, table).Return(domain.Found(domain.NewSourceFileMetadata()), nil)

	updatedB := domain.NewSourceFileMetadata()
	updatedB.AddDirect(a, foo, domain.HashString("foo"))
	g.Update(b, updatedB)

	require.NoError(t, g.Reconcile([]domain.FileID{b, a}))

	md, err := g.Fetch(a)
	require.NoError(t, err)
	assert.True(t, md.Inverse[b].Equal(domain.NewSignatureSet(foo)))
	assert.NotContains(t, md.Inverse, c)
}

func TestGraph_ReconcileRejectsEdgeToRemovedFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockMetadataReader(ctrl)
	g, _ := newGraph(t, reader)

	a, b := g.ID(keyA), g.ID(keyB)
	md := domain.NewSourceFileMetadata()
	md.AddDirect(a, foo, domain.HashString("foo"))
	g.Update(b, md)
	g.Remove(a)

	err := g.Reconcile([]domain.FileID{b})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInternalInconsistency))
}

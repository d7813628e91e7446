package sighash_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/engine/sighash"
)

func sig(s string) domain.Signature { return domain.NewSignature(s) }

func decl(name, header, body string, inline bool, refs ...string) domain.Declaration {
	d := domain.Declaration{
		Signature: sig(name),
		Kind:      domain.KindFunction,
		Inline:    inline,
		Header:    []byte(header),
		Body:      []byte(body),
	}
	for _, r := range refs {
		d.References = append(d.References, sig(r))
	}
	return d
}

func file(src string, annotations string, decls ...domain.Declaration) *domain.LoadedFile {
	return &domain.LoadedFile{
		Key:          domain.NewFileKey("core", src),
		Annotations:  []byte(annotations),
		Declarations: decls,
	}
}

func hashOf(t *testing.T, name string, files ...*domain.LoadedFile) domain.Hash {
	t.Helper()
	c := sighash.New()
	for _, f := range files {
		require.NoError(t, c.AddFile(f))
	}
	h, ok := c.Hash(sig(name))
	require.True(t, ok)
	return h
}

func TestHash_NonInlineIgnoresBody(t *testing.T) {
	before := hashOf(t, "foo", file("a", "", decl("foo", "fun foo(): Int", "return 1", false)))
	after := hashOf(t, "foo", file("a", "", decl("foo", "fun foo(): Int", "return 2", false)))
	shape := hashOf(t, "foo", file("a", "", decl("foo", "fun foo(): Long", "return 1", false)))

	assert.Equal(t, before, after)
	assert.NotEqual(t, before, shape)
}

func TestHash_InlineCoversBody(t *testing.T) {
	before := hashOf(t, "foo", file("a", "", decl("foo", "inline fun foo()", "1", true)))
	after := hashOf(t, "foo", file("a", "", decl("foo", "inline fun foo()", "2", true)))

	assert.NotEqual(t, before, after)
}

func TestHash_AnnotationsContribute(t *testing.T) {
	plain := hashOf(t, "foo", file("a", "", decl("foo", "fun foo()", "", false)))
	annotated := hashOf(t, "foo", file("a", "@file:JvmName(\"X\")", decl("foo", "fun foo()", "", false)))

	assert.NotEqual(t, plain, annotated)
}

func TestHash_InlineClosureIsTransitive(t *testing.T) {
	build := func(leafBody string) domain.Hash {
		return hashOf(t, "top",
			file("a", "", decl("top", "inline fun top()", "mid()", true, "mid")),
			file("b", "", decl("mid", "inline fun mid()", "leaf()", true, "leaf")),
			file("c", "", decl("leaf", "inline fun leaf()", leafBody, true)),
		)
	}

	assert.NotEqual(t, build("1"), build("2"))
}

func TestHash_NonInlineCalleeBodyDoesNotLeak(t *testing.T) {
	build := func(calleeBody string) domain.Hash {
		return hashOf(t, "top",
			file("a", "", decl("top", "inline fun top()", "callee()", true, "callee")),
			file("b", "", decl("callee", "fun callee()", calleeBody, false)),
		)
	}

	assert.Equal(t, build("1"), build("2"))
}

func TestHash_CyclicInlineCallsTerminate(t *testing.T) {
	h := hashOf(t, "ping",
		file("a", "", decl("ping", "inline fun ping()", "pong()", true, "pong")),
		file("b", "", decl("pong", "inline fun pong()", "ping()", true, "ping")),
	)

	assert.False(t, h.IsZero())
}

func TestHash_OrderIndependent(t *testing.T) {
	a := file("a", "", decl("top", "inline fun top()", "x(); y()", true, "x", "y"))
	b := file("b", "", decl("x", "inline fun x()", "1", true))
	c := file("c", "", decl("y", "inline fun y()", "2", true))

	forward := hashOf(t, "top", a, b, c)
	backward := hashOf(t, "top", c, b, a)

	swapped := file("a", "", decl("top", "inline fun top()", "x(); y()", true, "y", "x"))
	assert.Equal(t, forward, backward)
	assert.Equal(t, forward, hashOf(t, "top", swapped, b, c))
}

func TestHash_UnresolvedReference(t *testing.T) {
	c := sighash.New()
	require.NoError(t, c.AddFile(file("a", "", decl("top", "inline fun top()", "gone()", true, "gone"))))
	stubbed, ok := c.Hash(sig("top"))
	require.True(t, ok)

	c2 := sighash.New()
	require.NoError(t, c2.AddFile(file("a", "", decl("top", "inline fun top()", "gone()", true, "gone"))))
	require.NoError(t, c2.AddFile(file("b", "", decl("gone", "inline fun gone()", "", true))))
	resolved, ok := c2.Hash(sig("top"))
	require.True(t, ok)

	assert.NotEqual(t, stubbed, resolved)
	assert.False(t, c.Contains(sig("gone")))
	_, ok = c.Hash(sig("gone"))
	assert.False(t, ok)
}

func TestCalculator_Registration(t *testing.T) {
	c := sighash.New()
	a := file("a", "", decl("foo", "fun foo()", "", false))
	require.NoError(t, c.AddFile(a))
	require.NoError(t, c.AddFile(a))

	owner, ok := c.Owner(sig("foo"))
	require.True(t, ok)
	assert.Equal(t, a.Key, owner)

	err := c.AddFile(file("b", "", decl("foo", "fun foo()", "", false)))
	require.ErrorIs(t, err, domain.ErrDuplicateSignature)
}

func TestCalculator_AddGraph(t *testing.T) {
	g := domain.NewSymbolGraph()
	a := file("a", "", decl("foo", "fun foo()", "", false))
	g.Files[a.Key] = a

	c := sighash.New()
	require.NoError(t, c.AddGraph(g))
	assert.True(t, c.Contains(sig("foo")))
}

func TestCalculator_Parent(t *testing.T) {
	member := decl("Box.get", "fun get()", "", false)
	member.Parent = sig("Box")
	c := sighash.New()
	require.NoError(t, c.AddFile(file("a", "", decl("Box", "class Box", "", false), member)))

	parent, ok := c.Parent(sig("Box.get"))
	require.True(t, ok)
	assert.Equal(t, sig("Box"), parent)

	_, ok = c.Parent(sig("Box"))
	assert.False(t, ok)
	_, ok = c.Parent(sig("missing"))
	assert.False(t, ok)
}

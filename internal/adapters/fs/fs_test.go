package fs_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stale/internal/adapters/fs"
	"go.trai.ch/stale/internal/core/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.PrivateFilePerm))
}

func TestWalker_WalkFiles(t *testing.T) {
	// root/
	//   .git/config.unit.yaml
	//   ignored/skip.unit.yaml
	//   src/main.unit.yaml
	//   src/notes.txt
	//   a.unit.yaml
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".git", "config.unit.yaml"), "x")
	writeFile(t, filepath.Join(root, "ignored", "skip.unit.yaml"), "x")
	writeFile(t, filepath.Join(root, "src", "main.unit.yaml"), "x")
	writeFile(t, filepath.Join(root, "src", "notes.txt"), "x")
	writeFile(t, filepath.Join(root, "a.unit.yaml"), "x")

	walker := fs.NewWalker()
	got := slices.Collect(walker.WalkFiles(root, ".unit.yaml", []string{"ignored"}))

	assert.Equal(t, []string{"a.unit.yaml", "src/main.unit.yaml"}, got)
}

func TestWalker_WalkFiles_StopsEarly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.unit.yaml"), "x")
	writeFile(t, filepath.Join(root, "b.unit.yaml"), "x")

	var got []string
	for path := range fs.NewWalker().WalkFiles(root, ".unit.yaml", nil) {
		got = append(got, path)
		break
	}

	assert.Equal(t, []string{"a.unit.yaml"}, got)
}

func TestHasher_HashFile(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	c := filepath.Join(root, "c")
	writeFile(t, a, "fun foo() = 1")
	writeFile(t, b, "fun foo() = 1")
	writeFile(t, c, "fun foo() = 2")

	h := fs.NewHasher()

	ha, err := h.HashFile(a)
	require.NoError(t, err)
	hb, err := h.HashFile(b)
	require.NoError(t, err)
	hc, err := h.HashFile(c)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.NotEqual(t, ha, hc)
}

func TestHasher_HashFile_Missing(t *testing.T) {
	_, err := fs.NewHasher().HashFile(filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open file")
}

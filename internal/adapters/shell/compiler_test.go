package shell_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stale/internal/adapters/shell"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func graphOf(dir string, keys ...domain.FileKey) *domain.SymbolGraph {
	g := domain.NewSymbolGraph()
	for _, k := range keys {
		g.Files[k] = &domain.LoadedFile{
			Key:  k,
			Path: filepath.Join(dir, k.Library.String(), k.Source.String()),
		}
	}
	return g
}

func TestCompiler_Compile(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)

	dir := t.TempDir()
	a := domain.NewFileKey("core", "a.unit.yaml")
	b := domain.NewFileKey("core", "b.unit.yaml")
	cfg := domain.CompilerConfig{
		Command: []string{"sh", "-c", `printf '%s|%s|%s' "$PREFIX" "$STALE_LIBRARY" "$STALE_SOURCE"`},
		Env:     map[string]string{"PREFIX": "js"},
		Dir:     dir,
	}

	out, err := shell.NewCompiler(logger).Compile(context.Background(), cfg, graphOf(dir, a, b), []domain.FileKey{a, b})
	require.NoError(t, err)

	assert.Equal(t, map[domain.FileKey][]byte{
		a: []byte("js|core|a.unit.yaml"),
		b: []byte("js|core|b.unit.yaml"),
	}, out)
}

func TestCompiler_Compile_SourcePath(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)

	dir := t.TempDir()
	a := domain.NewFileKey("core", "a.unit.yaml")
	cfg := domain.CompilerConfig{Command: []string{"sh", "-c", `printf '%s' "$STALE_SOURCE_PATH"`}, Dir: dir}

	out, err := shell.NewCompiler(logger).Compile(context.Background(), cfg, graphOf(dir, a), []domain.FileKey{a})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "core", "a.unit.yaml"), string(out[a]))
}

func TestCompiler_Compile_StderrIsLogged(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn("core:a.unit.yaml: deprecated call").Times(1)

	a := domain.NewFileKey("core", "a.unit.yaml")
	cfg := domain.CompilerConfig{Command: []string{"sh", "-c", "echo 'deprecated call' >&2; printf ok"}}

	out, err := shell.NewCompiler(logger).Compile(context.Background(), cfg, graphOf(t.TempDir(), a), []domain.FileKey{a})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out[a]))
}

func TestCompiler_Compile_Failures(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	a := domain.NewFileKey("core", "a.unit.yaml")
	graph := graphOf(t.TempDir(), a)
	compiler := shell.NewCompiler(logger)

	_, err := compiler.Compile(context.Background(), domain.CompilerConfig{Command: []string{"sh", "-c", "exit 3"}}, graph, []domain.FileKey{a})
	require.ErrorIs(t, err, domain.ErrCompileFailed)

	_, err = compiler.Compile(context.Background(), domain.CompilerConfig{}, graph, []domain.FileKey{a})
	require.ErrorIs(t, err, domain.ErrCompilerNotConfigured)

	_, err = compiler.Compile(context.Background(), domain.CompilerConfig{Command: []string{"true"}}, graph,
		[]domain.FileKey{domain.NewFileKey("core", "missing.unit.yaml")})
	require.ErrorIs(t, err, domain.ErrInternalInconsistency)

	out, err := compiler.Compile(context.Background(), domain.CompilerConfig{}, graph, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

// Package shell provides a compiler that runs an external command once per dirty file.
package shell

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Environment variables describing the file being compiled.
const (
	EnvLibrary    = "STALE_LIBRARY"
	EnvSource     = "STALE_SOURCE"
	EnvSourcePath = "STALE_SOURCE_PATH"
	EnvLibraryDir = "STALE_LIBRARY_DIR"
)

// Compiler implements ports.Compiler using os/exec.
// The standard output of the command is the fragment; standard error is logged.
type Compiler struct {
	logger ports.Logger
	limit  int
}

// NewCompiler creates a new Compiler running up to one command per CPU.
func NewCompiler(logger ports.Logger) *Compiler {
	return &Compiler{logger: logger, limit: runtime.NumCPU()}
}

// Compile runs cfg.Command for every dirty file.
func (c *Compiler) Compile(
	ctx context.Context,
	cfg domain.CompilerConfig,
	graph *domain.SymbolGraph,
	dirty []domain.FileKey,
) (map[domain.FileKey][]byte, error) {
	if len(dirty) == 0 {
		return map[domain.FileKey][]byte{}, nil
	}
	if len(cfg.Command) == 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrCompilerNotConfigured, "failed to compile"), "files", len(dirty))
	}

	var (
		mu  sync.Mutex
		out = make(map[domain.FileKey][]byte, len(dirty))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for _, key := range dirty {
		f, ok := graph.Files[key]
		if !ok {
			err := zerr.Wrap(domain.ErrInternalInconsistency, "dirty file was not loaded")
			return nil, zerr.With(err, "file", key.String())
		}
		g.Go(func() error {
			fragment, err := c.run(gctx, cfg, f)
			if err != nil {
				return err
			}
			mu.Lock()
			out[key] = fragment
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Compiler) run(ctx context.Context, cfg domain.CompilerConfig, f *domain.LoadedFile) ([]byte, error) {
	env := resolveEnvironment(os.Environ(), cfg.Env, map[string]string{
		EnvLibrary:    f.Key.Library.String(),
		EnvSource:     f.Key.Source.String(),
		EnvSourcePath: f.Path,
		EnvLibraryDir: strings.TrimSuffix(f.Path, string(filepath.Separator)+filepath.FromSlash(f.Key.Source.String())),
	})

	name := cfg.Command[0]
	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, env); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, cfg.Command[1:]...) //nolint:gosec // user provided command
	cmd.Args[0] = name
	cmd.Dir = cfg.Dir
	cmd.Env = env

	var stdout bytes.Buffer
	stderr := &logWriter{logger: c.logger, prefix: f.Key.String() + ": "}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	_ = stderr.Close()
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		wrapped := zerr.With(zerr.Wrap(domain.ErrCompileFailed, err.Error()), "file", f.Key.String())
		return nil, zerr.With(wrapped, "exit_code", exitCode)
	}
	return stdout.Bytes(), nil
}

// logWriter forwards complete lines of compiler diagnostics to the logger.
type logWriter struct {
	logger ports.Logger
	prefix string
	buf    []byte
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.buf = append(w.buf, p...)

	// Scan for newlines
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}

	return len(p), nil
}

func (w *logWriter) Close() error {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *logWriter) logLine(line []byte) {
	msg := strings.TrimSuffix(string(line), "\r")
	if msg == "" {
		return
	}
	w.logger.Warn(w.prefix + msg)
}

// allowListedEnvVars are the system environment variables inherited by the compiler.
// Everything else must come from the configuration, so that the configuration hash
// covers whatever influences a fragment.
var allowListedEnvVars = map[string]struct{}{
	"HOME": {},
	"TERM": {},
	"USER": {},
	"PATH": {},
}

// resolveEnvironment merges the allow-listed system environment, the configured
// environment and the per-file variables, later sources winning.
func resolveEnvironment(sysEnv []string, configEnv, fileEnv map[string]string) []string {
	envMap := filterSystemEnv(sysEnv)
	maps.Copy(envMap, configEnv)
	maps.Copy(envMap, fileEnv)

	result := make([]string, 0, len(envMap))
	for _, k := range slices.Sorted(maps.Keys(envMap)) {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

func filterSystemEnv(sysEnv []string) map[string]string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if ok {
			if _, allowed := allowListedEnvVars[k]; allowed {
				envMap[k] = v
			}
		}
	}
	return envMap
}

// lookPath searches for an executable in the directories named by the PATH environment variable.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}

// Package config provides the configuration loader for stale.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger   ports.Logger
	validate *validator.Validate
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("libpath", validateLibraryPath)
	return &Loader{Logger: logger, validate: v}
}

// validateLibraryPath accepts clean, relative, slash-separated paths inside the build root.
func validateLibraryPath(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" || strings.Contains(p, `\`) || path.IsAbs(p) {
		return false
	}
	clean := path.Clean(p)
	return clean == p && clean != ".." && !strings.HasPrefix(clean, "../")
}

// Load finds stale.yaml at or above cwd and returns the validated configuration.
func (l *Loader) Load(cwd string) (*domain.BuildConfig, error) {
	configPath, err := findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	var stalefile Stalefile
	if err := readAndUnmarshalYAML(configPath, &stalefile); err != nil {
		return nil, err
	}

	if err := l.validate.Struct(&stalefile); err != nil {
		return nil, validationError(err, configPath)
	}

	root := filepath.Dir(configPath)
	cfg := &domain.BuildConfig{
		Root:         root,
		CacheDir:     resolveDir(root, stalefile.Cache, domain.DefaultCachePath()),
		OutputDir:    resolveDir(root, stalefile.Output, domain.DefaultOutputPath()),
		Dependencies: make(map[domain.LibraryPath][]domain.LibraryPath),
		Compiler:     domain.CompilerConfig{Command: stalefile.Compiler.Cmd, Dir: root},
		Options:      stalefile.Options,
	}

	cfg.Compiler.Env, err = resolveEnvironment(root, stalefile.Compiler)
	if err != nil {
		return nil, err
	}

	cfg.Libraries, err = orderLibraries(stalefile.Libraries, cfg.Dependencies)
	if err != nil {
		return nil, zerr.With(err, "config", configPath)
	}

	if len(cfg.Compiler.Command) == 0 {
		l.Logger.Warn(fmt.Sprintf("no compiler configured in %s, builds will fail for dirty files", domain.StaleFileName))
	}

	return cfg, nil
}

func findConfiguration(cwd string) (string, error) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.StaleFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			break
		}
		currentDir = parentDir
	}
	return "", zerr.With(zerr.Wrap(domain.ErrConfigNotFound, "failed to find configuration"), "cwd", cwd)
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is found by walking up from the working directory
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to read configuration"), "config", configPath)
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		err := zerr.Wrap(domain.ErrInvalidConfig, "failed to parse configuration: "+parseErr.Error())
		return zerr.With(err, "config", configPath)
	}

	return nil
}

func validationError(err error, configPath string) error {
	out := zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "configuration failed validation"), "config", configPath)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		out = zerr.With(out, "field", first.Namespace())
		out = zerr.With(out, "rule", first.Tag())
	}
	return out
}

func resolveDir(root, configured, fallback string) string {
	if configured == "" {
		configured = fallback
	}
	if filepath.IsAbs(configured) {
		return filepath.Clean(configured)
	}
	return filepath.Join(root, configured)
}

// resolveEnvironment merges the env file of the compiler with its inline environment.
// Inline entries win.
func resolveEnvironment(root string, dto CompilerDTO) (map[string]string, error) {
	env := make(map[string]string)
	if dto.EnvFile != "" {
		envPath := dto.EnvFile
		if !filepath.IsAbs(envPath) {
			envPath = filepath.Join(root, envPath)
		}
		fileEnv, err := godotenv.Read(envPath)
		if err != nil {
			wrapped := zerr.Wrap(domain.ErrInvalidConfig, "failed to read compiler env file: "+err.Error())
			return nil, zerr.With(wrapped, "env_file", envPath)
		}
		maps.Copy(env, fileEnv)
	}
	maps.Copy(env, dto.Environment)
	return env, nil
}

type visitState uint8

const (
	visiting visitState = iota + 1
	visited
)

// orderLibraries sorts libraries so that each one follows its dependencies, keeping the
// declared order where dependencies allow it. deps is filled with the direct dependencies
// of each library.
func orderLibraries(dtos []LibraryDTO, deps map[domain.LibraryPath][]domain.LibraryPath) ([]domain.LibraryPath, error) {
	declared := make(map[string]LibraryDTO, len(dtos))
	for _, dto := range dtos {
		if _, dup := declared[dto.Path]; dup {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "library declared twice"), "library", dto.Path)
		}
		declared[dto.Path] = dto
	}

	for _, dto := range dtos {
		lib := domain.NewLibraryPath(dto.Path)
		for _, dep := range dto.DependsOn {
			if _, ok := declared[dep]; !ok {
				err := zerr.With(zerr.Wrap(domain.ErrUnknownLibrary, "library depends on an undeclared library"), "library", dto.Path)
				return nil, zerr.With(err, "dependency", dep)
			}
			deps[lib] = append(deps[lib], domain.NewLibraryPath(dep))
		}
	}

	state := make(map[string]visitState, len(dtos))
	order := make([]domain.LibraryPath, 0, len(dtos))
	var visit func(p string, chain []string) error
	visit = func(p string, chain []string) error {
		switch state[p] {
		case visited:
			return nil
		case visiting:
			cycle := append(chain, p)
			return zerr.With(zerr.Wrap(domain.ErrLibraryCycle, "failed to order libraries"), "cycle", strings.Join(cycle, " -> "))
		}
		state[p] = visiting
		for _, dep := range declared[p].DependsOn {
			if err := visit(dep, append(chain, p)); err != nil {
				return err
			}
		}
		state[p] = visited
		order = append(order, domain.NewLibraryPath(p))
		return nil
	}

	for _, dto := range dtos {
		if err := visit(dto.Path, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

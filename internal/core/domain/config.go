package domain

import (
	"maps"
	"slices"
)

// BuildConfig is the validated configuration of one build.
type BuildConfig struct {
	// Root is the directory containing the configuration file.
	Root      string
	CacheDir  string
	OutputDir string
	// Libraries are ordered so that every library follows its dependencies.
	Libraries []LibraryPath
	// Dependencies lists the direct dependencies of each library.
	Dependencies map[LibraryPath][]LibraryPath
	Compiler  CompilerConfig
	Options   map[string]string
}

// CompilerConfig describes the external compiler command.
type CompilerConfig struct {
	Command []string
	Env     map[string]string
	// Dir is the working directory of the command.
	Dir string
}

// Fingerprint hashes every compiler setting that influences compiled output.
// The library set is excluded: libraries joining or leaving the build are handled
// per file by the cache itself. Cache and output locations are excluded too.
func (c *BuildConfig) Fingerprint() Hash {
	b := NewHashBuilder()
	b.Uint64(uint64(len(c.Compiler.Command)))
	for _, arg := range c.Compiler.Command {
		b.String(arg)
	}
	hashStringMap(b, c.Compiler.Env)
	hashStringMap(b, c.Options)
	return b.Sum()
}

func hashStringMap(b *HashBuilder, m map[string]string) {
	keys := slices.Sorted(maps.Keys(m))
	b.Uint64(uint64(len(keys)))
	for _, k := range keys {
		b.String(k).String(m[k])
	}
}

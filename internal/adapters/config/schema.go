package config

// Stalefile represents the structure of the stale.yaml configuration file.
type Stalefile struct {
	Version   string            `yaml:"version" validate:"omitempty,oneof=1"`
	Cache     string            `yaml:"cache"`
	Output    string            `yaml:"output"`
	Libraries []LibraryDTO      `yaml:"libraries" validate:"required,min=1,dive"`
	Compiler  CompilerDTO       `yaml:"compiler"`
	Options   map[string]string `yaml:"options"`
}

// LibraryDTO represents a library entry in the configuration.
type LibraryDTO struct {
	Path      string   `yaml:"path" validate:"required,libpath"`
	DependsOn []string `yaml:"dependsOn" validate:"dive,required,libpath"`
}

// CompilerDTO represents the compiler command of the configuration.
type CompilerDTO struct {
	Cmd         []string          `yaml:"cmd" validate:"dive,required"`
	Environment map[string]string `yaml:"environment"`
	EnvFile     string            `yaml:"envFile"`
}

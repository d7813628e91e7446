package klib

// Manifest represents the structure of the library.yaml file of a library.
type Manifest struct {
	Name string `yaml:"name"`
	// Ignore lists directory names skipped when collecting source units.
	Ignore []string `yaml:"ignore"`
}

// UnitDTO represents one *.unit.yaml source unit.
type UnitDTO struct {
	Annotations  string           `yaml:"annotations"`
	Imports      []string         `yaml:"imports"`
	Declarations []DeclarationDTO `yaml:"declarations"`
}

// DeclarationDTO represents a declaration inside a source unit.
type DeclarationDTO struct {
	Signature  string   `yaml:"signature"`
	Kind       string   `yaml:"kind"`
	Inline     bool     `yaml:"inline"`
	Parent     string   `yaml:"parent"`
	Header     string   `yaml:"header"`
	Body       string   `yaml:"body"`
	References []string `yaml:"references"`
}

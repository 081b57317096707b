package storage

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed migrations.yaml
var manifestYAML []byte

// ManifestVersion describes one entry of the migration manifest.
type ManifestVersion struct {
	Version     int    `yaml:"version"`
	Description string `yaml:"description"`
}

// Manifest is the parsed form of migrations.yaml.
type Manifest struct {
	Versions []ManifestVersion `yaml:"versions"`
}

// LoadManifest parses the embedded migration manifest.
func LoadManifest() (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(manifestYAML, &m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

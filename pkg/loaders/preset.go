package loaders

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/radiant-render/radiant/pkg/core"
)

// Preset is a YAML quality preset overriding render parameters without
// editing the scene description
type Preset struct {
	Samples         int     `yaml:"samples"`
	MaxDepth        int     `yaml:"maxDepth"`
	TileSize        int     `yaml:"tileSize"`
	Workers         int     `yaml:"workers"`
	CheckpointEvery int     `yaml:"checkpointEvery"`
	Filter          string  `yaml:"filter"`
	Sampler         string  `yaml:"sampler"`
	PhotonsPerPass  int     `yaml:"photonsPerPass"`
	InitialRadius   float64 `yaml:"initialRadius"`
	Mutations       int     `yaml:"mutations"`
}

// LoadPreset reads a YAML preset file
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.IOErrorf("opening preset %q", path)
	}
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(core.ErrConfig, "preset %q: %v", path, err)
	}
	return &p, nil
}

// Apply overrides the scene file's sample count, max depth, filter, and
// sampler with the preset's values where those are set. TileSize, Workers,
// CheckpointEvery, PhotonsPerPass, InitialRadius, and Mutations are parsed
// but not applied.
func (p *Preset) Apply(sf *SceneFile) {
	if p.Samples > 0 {
		sf.SamplesPerPixel = p.Samples
	}
	if p.MaxDepth > 0 {
		sf.MaxDepth = p.MaxDepth
	}
	if p.Filter != "" {
		sf.FilterType = p.Filter
	}
	if p.Sampler != "" {
		sf.SamplerType = p.Sampler
	}
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ciasx/domain/experiment"
	"ciasx/internal/errors"
)

// seedFile is the on-disk layout of a seed configuration list.
type seedFile struct {
	Seeds []experiment.Configuration `yaml:"seeds"`
}

// LoadDesignSpace reads a YAML or JSON design space. An empty path yields the
// built-in registry.
func LoadDesignSpace(path string) (experiment.DesignSpace, error) {
	if path == "" {
		return experiment.DefaultDesignSpace(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read design space %s", path)
	}
	return ParseDesignSpace(data)
}

// ParseDesignSpace decodes a design space document
func ParseDesignSpace(data []byte) (experiment.DesignSpace, error) {
	var ds experiment.DesignSpace
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("parse design space: %w", err))
	}
	if ds == nil {
		ds = experiment.DesignSpace{}
	}
	if err := ds.Validate(); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return ds, nil
}

// LoadSeedConfigs reads the seed configurations. An empty path yields the
// built-in seeds.
func LoadSeedConfigs(path string) ([]experiment.Configuration, error) {
	if path == "" {
		return DefaultSeedConfigs(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read seed configs %s", path)
	}
	return ParseSeedConfigs(data)
}

// ParseSeedConfigs accepts either a top-level list or a {seeds: [...]} document.
func ParseSeedConfigs(data []byte) ([]experiment.Configuration, error) {
	var list []experiment.Configuration
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("parse seed configs: %w", err))
	}
	return doc.Seeds, nil
}

// DefaultSeedConfigs returns two small starting experiments.
func DefaultSeedConfigs() []experiment.Configuration {
	return []experiment.Configuration{
		{
			ForwardConfig: map[string]any{"compression_ratio": 8},
			ReconFamily:   experiment.FamilyCIASCore,
			ReconParams:   map[string]any{"num_layers": 8, "hidden_dim": 64},
			UQScheme:      experiment.UQNone,
			UQParams:      map[string]any{},
			TrainConfig:   map[string]any{"epochs": 30, "lr": 0.001},
		},
		{
			ForwardConfig: map[string]any{"compression_ratio": 16},
			ReconFamily:   experiment.FamilyBaselineCNN,
			ReconParams:   map[string]any{"num_layers": 6},
			UQScheme:      experiment.UQConformal,
			UQParams:      map[string]any{"alpha": 0.1},
			TrainConfig:   map[string]any{"epochs": 30, "lr": 0.001},
		},
	}
}

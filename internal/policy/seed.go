package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSeedFile reads community policies from a YAML file keyed by community
// name. Fields left out of an entry take the default policy's values.
func LoadSeedFile(path string) (map[string]Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy seeds: %w", err)
	}

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse policy seeds: %w", err)
	}

	seeds := make(map[string]Policy, len(raw))
	for name, node := range raw {
		p := Default()
		if err := node.Decode(&p); err != nil {
			return nil, fmt.Errorf("parse policy for %s: %w", name, err)
		}
		if p.MinBodyLength < 0 {
			return nil, fmt.Errorf("policy for %s: min_body_length must be >= 0", name)
		}
		seeds[Normalize(name)] = p
	}

	return seeds, nil
}

// Merge returns base overlaid with overrides.
func Merge(base, overrides map[string]Policy) map[string]Policy {
	out := make(map[string]Policy, len(base)+len(overrides))
	for k, v := range base {
		out[Normalize(k)] = v
	}
	for k, v := range overrides {
		out[Normalize(k)] = v
	}
	return out
}

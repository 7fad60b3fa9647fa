package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables. Order of precedence (low to high):
//  1. defaults (Default())
//  2. file (YAML) if TWI_CONFIG is set
//  3. env (prefix TWI_)
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("TWI_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Map env keys like TWI_CELL_SIZE -> cell_size, matching the koanf tags.
	// List-valued keys take comma-separated values, e.g.
	// TWI_CLASSIFICATIONS=2,9.
	envProvider := env.ProviderWithValue("TWI_", ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), "twi_")
		switch key {
		case "neighbor_priority", "classifications":
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return key, parts
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

// EnvPrefix is prepended to every environment override, e.g. BRIDGE_SOURCE_MASTER_KEY.
const EnvPrefix = "BRIDGE"

func readFile(path string, cfg *Configuration) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("cannot decode %s: %w", path, err)
	}

	return nil
}

func readEnv(cfg *Configuration) error {
	return envconfig.Process(EnvPrefix, cfg)
}

// Load reads the yaml file at path, overlays environment variables and applies defaults.
// A missing file is not an error when the environment carries the whole configuration.
func Load(path string) (*Configuration, error) {
	cfg := &Configuration{}

	if path != "" {
		if err := readFile(path, cfg); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := readEnv(cfg); err != nil {
		return nil, fmt.Errorf("cannot read environment: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ServeConfig describes the inspection server and the files it preloads.
type ServeConfig struct {
	Name         string        `toml:"name"`
	Addr         string        `toml:"addr"`
	CorsOrigins  []string      `toml:"cors_origins"`
	DumpDir      string        `toml:"dump_dir"`
	Patches      []PatchConfig `toml:"patches"`
	Performances []PatchConfig `toml:"performances"`
}

// PatchConfig names one file on disk. An empty Name falls back to the file
// base name without its extension.
type PatchConfig struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

func LoadServeConfig(path string) (ServeConfig, error) {
	var cfg ServeConfig
	if err := loadToml(path, &cfg); err != nil {
		return ServeConfig{}, err
	}
	cfg = ApplyServeDefaults(cfg)
	if err := ValidateServeConfig(cfg); err != nil {
		return ServeConfig{}, err
	}
	return cfg, nil
}

func ApplyServeDefaults(cfg ServeConfig) ServeConfig {
	if cfg.Name == "" {
		cfg.Name = "g2ctl"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9200"
	}
	for i := range cfg.Patches {
		cfg.Patches[i] = withName(cfg.Patches[i])
	}
	for i := range cfg.Performances {
		cfg.Performances[i] = withName(cfg.Performances[i])
	}
	return cfg
}

func withName(p PatchConfig) PatchConfig {
	if strings.TrimSpace(p.Name) == "" && p.Path != "" {
		base := filepath.Base(p.Path)
		p.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return p
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateServeConfig(cfg ServeConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("serve config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("serve config missing addr")
	}
	seen := make(map[string]string)
	check := func(kind string, i int, p PatchConfig) error {
		if strings.TrimSpace(p.Path) == "" {
			return fmt.Errorf("%s[%d] invalid: path is required", kind, i)
		}
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%s[%d] invalid: name is required", kind, i)
		}
		if prev, ok := seen[p.Name]; ok {
			return fmt.Errorf("%s[%d] invalid: name %q already used by %s", kind, i, p.Name, prev)
		}
		seen[p.Name] = fmt.Sprintf("%s[%d]", kind, i)
		return nil
	}
	for i, p := range cfg.Patches {
		if err := check("patches", i, p); err != nil {
			return err
		}
	}
	for i, p := range cfg.Performances {
		if err := check("performances", i, p); err != nil {
			return err
		}
	}
	return nil
}

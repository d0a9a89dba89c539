// # internal/config/config.go
package config

import (
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Package         Package           `toml:"package"`
	SourceDirs      []string          `toml:"source_dirs"`
	StuffDir        string            `toml:"stuff_dir"`
	CompilerVersion string            `toml:"compiler_version"`
	Dependencies    map[string]string `toml:"dependencies"` // "author/project" -> source dir
	ImplicitImports []string          `toml:"implicit_imports"`
	Exclude         Exclude           `toml:"exclude"`
	Build           Build             `toml:"build"`
	History         History           `toml:"history"`
	Observability   Observability     `toml:"observability"`
}

type Package struct {
	Author  string `toml:"author"`
	Project string `toml:"project"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Build struct {
	Workers int `toml:"workers"` // 0 means one per CPU core
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration usable without any config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Package.Author == "" {
		cfg.Package.Author = "user"
	}
	if cfg.Package.Project == "" {
		cfg.Package.Project = "project"
	}
	if len(cfg.SourceDirs) == 0 {
		cfg.SourceDirs = []string{"src"}
	}
	if cfg.StuffDir == "" {
		cfg.StuffDir = "elm-stuff"
	}
	if cfg.CompilerVersion == "" {
		cfg.CompilerVersion = "0.19.1"
	}
	if cfg.Build.Workers <= 0 {
		cfg.Build.Workers = runtime.NumCPU()
	}
	if cfg.History.Path == "" {
		cfg.History.Path = "elm-stuff/history.db"
	}
	if len(cfg.ImplicitImports) == 0 {
		cfg.ImplicitImports = []string{
			"Basics", "Char", "Debug", "List", "Maybe", "Result", "String", "Tuple",
			"Platform", "Platform.Cmd", "Platform.Sub",
		}
	}
}

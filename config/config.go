// Package config handles pywalk.toml walker configuration. A pywalk.yaml
// or pywalk.yml file is accepted in its place.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/chazu/pywalk/purity"
	"github.com/chazu/pywalk/walker"
)

// FileNames are the configuration file names searched for, in order.
var FileNames = []string{"pywalk.toml", "pywalk.yaml", "pywalk.yml"}

// Config is a pywalk configuration file.
type Config struct {
	Walker Walker `toml:"walker" yaml:"walker"`
	Purity Purity `toml:"purity" yaml:"purity"`
	Output Output `toml:"output" yaml:"output"`
	Store  Store  `toml:"store" yaml:"store"`
	Log    Log    `toml:"log" yaml:"log"`

	// Path is the file the configuration was loaded from (set at load time).
	Path string `toml:"-" yaml:"-"`
}

// Walker configures free-variable handling.
type Walker struct {
	ReservedWord      string   `toml:"reserved-word" yaml:"reserved-word"`
	Exclude           []string `toml:"exclude" yaml:"exclude"`
	PureMappingMarker string   `toml:"pure-mapping-marker" yaml:"pure-mapping-marker"`
}

// Purity configures the substitution catalog.
type Purity struct {
	OpaqueModules []string `toml:"opaque-modules" yaml:"opaque-modules"`
}

// Output selects how walked graphs are written.
type Output struct {
	// Format is "binary" or "cbor".
	Format string `toml:"format" yaml:"format"`
	Path   string `toml:"path" yaml:"path"`
}

// Store configures the snapshot database.
type Store struct {
	Path string `toml:"path" yaml:"path"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity" yaml:"verbosity"`
	File      string `toml:"file" yaml:"file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Walker.ReservedWord == "" {
		c.Walker.ReservedWord = "__inline_fora"
	}
	if c.Walker.Exclude == nil {
		c.Walker.Exclude = []string{"staticmethod", "property", "__inline_fora"}
	}
	if c.Walker.PureMappingMarker == "" {
		c.Walker.PureMappingMarker = "pureMapping"
	}
	if c.Output.Format == "" {
		c.Output.Format = "binary"
	}
}

// Validate checks field values that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case "binary", "cbor":
	default:
		return fmt.Errorf("output.format must be binary or cbor, got %q", c.Output.Format)
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log.verbosity must not be negative, got %d", c.Log.Verbosity)
	}
	return nil
}

// WalkerOptions returns the walker settings. Source files and the module
// table are left for the caller.
func (c *Config) WalkerOptions() walker.Options {
	return walker.Options{
		ReservedWord:      c.Walker.ReservedWord,
		Exclude:           c.Walker.Exclude,
		PureMappingMarker: c.Walker.PureMappingMarker,
	}
}

// Catalog returns a substitution catalog holding the opaque modules.
func (c *Config) Catalog() *purity.Catalog {
	cat := purity.NewCatalog()
	cat.MarkOpaque(c.Purity.OpaqueModules...)
	return cat
}

// LoadFile parses a configuration file, choosing the decoder by extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	}

	c.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// Load parses the configuration file in dir.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, fmt.Errorf("no %s in %s", strings.Join(FileNames, " or "), dir)
}

// FindAndLoad walks up from startDir to find a configuration file and
// loads it. Returns defaults if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range FileNames {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return Load(dir)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

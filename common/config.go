package common

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultName      = "cafe"
	DefaultPort      = 3333
	DefaultChunkSize = 16 * 1024
	DefaultCacheSize = 4096
	DefaultInterval  = time.Second
	DefaultRetry     = 2

	// RegexpPrefix marks a menu pattern written as regexp:/source/flags.
	RegexpPrefix = "regexp:"
)

type Config struct {
	Common BasicConfig `yaml:"common"`
	Log    LogConfig   `yaml:"log"`
	Cafe   CafeConfig  `yaml:"cafe"`
}

type BasicConfig struct {
	Name  string      `yaml:"name"`
	Host  string      `yaml:"host"`
	Port  int         `yaml:"port"`
	Retry RetryConfig `yaml:"retry"`
}

type RetryConfig struct {
	Count       int    `yaml:"count"`
	Interval    string `yaml:"interval"`
	Incremental bool   `yaml:"incremental"`
}

type LogConfig struct {
	Path   string `yaml:"path"`
	Level  string `yaml:"level"`
	Access string `yaml:"access"`
}

// CafeConfig is shared read-only by every request once Canonicalize has run.
type CafeConfig struct {
	BasePath             string            `yaml:"base_path"`
	ChunkSize            string            `yaml:"chunk_size"`
	CacheSize            int               `yaml:"cache_size"`
	BroadcastVersion     bool              `yaml:"broadcast_version"`
	DebugResponseHeaders bool              `yaml:"debug_response_headers"`
	Alias                map[string]string `yaml:"alias"`
	Menu                 MenuConfig        `yaml:"menu"`

	ChunkBytes int `yaml:"-"`
}

// MenuConfig holds glob patterns and regexp:/source/flags patterns.
type MenuConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Duration returns the retry interval, DefaultInterval when unset.
func (r RetryConfig) Duration() (time.Duration, error) {
	if r.Interval == "" {
		return DefaultInterval, nil
	}
	d, err := time.ParseDuration(r.Interval)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid retry interval: %s", r.Interval)
	}
	return d, nil
}

// Canonicalize resolves base_path to a clean absolute path, parses the chunk
// size and normalizes alias routes to start with "/".
func (c *CafeConfig) Canonicalize() error {
	if c.BasePath == "" {
		c.BasePath = "."
	}
	abs, err := filepath.Abs(c.BasePath)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve base path %s", c.BasePath)
	}
	c.BasePath = filepath.Clean(abs)

	c.ChunkBytes = DefaultChunkSize
	if c.ChunkSize != "" {
		n, err := ParseSize(c.ChunkSize)
		if err != nil {
			return err
		}
		if n <= 0 {
			return errors.Errorf("chunk size must be positive: %s", c.ChunkSize)
		}
		c.ChunkBytes = int(n)
	}

	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}

	alias := make(map[string]string, len(c.Alias))
	for route, target := range c.Alias {
		if !strings.HasPrefix(route, "/") {
			route = "/" + route
		}
		alias[route] = target
	}
	c.Alias = alias

	if c.Menu.Include == nil {
		c.Menu.Include = []string{"**/*"}
	}
	if c.Menu.Exclude == nil {
		c.Menu.Exclude = []string{}
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Common: BasicConfig{Name: DefaultName, Port: DefaultPort, Retry: RetryConfig{Count: DefaultRetry}},
		Log:    LogConfig{Level: "info"},
		Cafe:   CafeConfig{BasePath: ".", BroadcastVersion: true},
	}
}

// decode overlays the file onto config. TOML files are loaded as a tree and
// re-encoded so both formats share the yaml field names and overlay rules.
func decode(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		tree, err := toml.LoadBytes(data)
		if err != nil {
			return errors.Wrapf(err, "failed to decode TOML config %s", path)
		}
		if data, err = yaml.Marshal(tree.ToMap()); err != nil {
			return errors.Wrapf(err, "failed to convert TOML config %s", path)
		}
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return errors.Wrapf(err, "failed to decode config %s", path)
	}
	return nil
}

// LoadConf reads the config file and then the optional local_<name> file next
// to it. Missing files leave the defaults in place.
func LoadConf(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, config.Cafe.Canonicalize()
	}

	dir, name := filepath.Split(path)
	for _, p := range []string{path, filepath.Join(dir, "local_"+name)} {
		if err := decode(p, config); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return nil, err
		}
	}

	if config.Common.Name == "" {
		config.Common.Name = DefaultName
	}
	if err := config.Cafe.Canonicalize(); err != nil {
		return nil, err
	}
	return config, nil
}

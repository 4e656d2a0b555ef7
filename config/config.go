// Package config loads planeio settings from a TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/janelia-flyem/planeio/planeio"
)

// Config is the parsed TOML configuration.  Example:
//
//	[logging]
//	logfile = "planeio.log"
//	max_log_size = 500  # MB
//	max_log_age = 30    # days
//	level = "info"
//
//	[cache]
//	mb = 256
//
//	[decode]
//	workers = 8
type Config struct {
	Logging planeio.LogConfig
	Cache   CacheConfig
	Decode  DecodeConfig
}

type CacheConfig struct {
	MB int `toml:"mb"` // plane cache size; 0 disables caching
}

type DecodeConfig struct {
	// Workers is the maximum # of containers inspected concurrently.
	Workers int
}

// Default returns the configuration used without a TOML file.
func Default() *Config {
	return &Config{
		Decode: DecodeConfig{Workers: runtime.NumCPU()},
	}
}

// Load reads configuration from a TOML file on top of the defaults.  Relative paths are
// interpreted relative to the TOML file's own directory.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no TOML configuration file provided")
	}
	c := Default()
	md, err := toml.DecodeFile(filename, c)
	if err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("unknown settings in %s: %s", filename, strings.Join(keys, ", "))
	}
	if err := c.convertPathsToAbsolute(filename); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %v", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	planeio.Infof("Loaded configuration from %s: %+v\n", filename, *c)
	return c, nil
}

func (c *Config) validate() error {
	if c.Cache.MB < 0 {
		return fmt.Errorf("cache size must be non-negative, got %d MB", c.Cache.MB)
	}
	if c.Decode.Workers < 1 {
		return fmt.Errorf("need at least one decode worker, got %d", c.Decode.Workers)
	}
	if c.Logging.Level != "" {
		if _, err := planeio.ParseLogMode(c.Logging.Level); err != nil {
			return err
		}
	}
	return nil
}

// Some settings in the TOML can be given as relative paths.
// This function converts them in-place to absolute paths,
// assuming the given paths were relative to the TOML file's own directory.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	var err error

	configDir := filepath.Dir(configPath)

	// [logging].logfile
	if c.Logging.Logfile != "" {
		c.Logging.Logfile, err = convertToAbsolute(c.Logging.Logfile, configDir)
		if err != nil {
			return fmt.Errorf("Error converting logfile setting to absolute path")
		}
	}
	return nil
}

// convertToAbsolute returns path unchanged if it is absolute, else joined to relativeTo
// after expanding a leading "~".
func convertToAbsolute(path, relativeTo string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Abs(filepath.Join(relativeTo, path))
}

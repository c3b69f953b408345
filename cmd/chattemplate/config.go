package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jonwraymond/chattemplate/chattemplate"
	"github.com/jonwraymond/chattemplate/modeltemplate"
)

// Config is the CLI configuration file:
//
//	[cache]
//	capacity = 100
//
//	[hub]
//	endpoint = "https://huggingface.co"
//	token = "hf_..."
//
//	[log]
//	verbosity = 0
type Config struct {
	Cache CacheConfig `toml:"cache"`
	Hub   HubConfig   `toml:"hub"`
	Log   LogConfig   `toml:"log"`
}

// CacheConfig sizes the compiled-template cache.
type CacheConfig struct {
	Capacity int `toml:"capacity"`
}

// HubConfig points the model registry at a Hub endpoint.
type HubConfig struct {
	Endpoint string `toml:"endpoint"`
	Token    string `toml:"token"`
}

// LogConfig sets the klog verbosity.
type LogConfig struct {
	Verbosity int `toml:"verbosity"`
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() Config {
	return Config{
		Cache: CacheConfig{Capacity: chattemplate.DefaultCapacity},
		Hub:   HubConfig{Endpoint: modeltemplate.DefaultHubEndpoint},
	}
}

// LoadConfig decodes the TOML file at path over cfg. Unknown keys are
// rejected.
func LoadConfig(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv fills an empty hub token from HF_TOKEN.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.Hub.Token == "" {
		c.Hub.Token = getenv("HF_TOKEN")
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Cache.Capacity < 0 {
		errs = append(errs, fmt.Errorf("cache.capacity must not be negative, got %d", c.Cache.Capacity))
	}
	if u, err := url.Parse(c.Hub.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("hub.endpoint must be an absolute URL, got %q", c.Hub.Endpoint))
	}
	if c.Log.Verbosity < 0 {
		errs = append(errs, fmt.Errorf("log.verbosity must not be negative, got %d", c.Log.Verbosity))
	}
	return errors.Join(errs...)
}

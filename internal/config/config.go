package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "SIMPLE_DISPATCH_"

type Config struct {
	Server struct {
		Address      string        `yaml:"address"`
		Threads      int           `yaml:"threads"`
		Sanitize     bool          `yaml:"sanitize"`
		Concurrency  int           `yaml:"concurrency"`
		MaxBodySize  string        `yaml:"max_body_size"` // e.g. "4 MiB"
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Address string `yaml:"address"` // empty disables the metrics listener
	} `yaml:"metrics"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	App struct {
		Name      string `yaml:"name"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"app"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	c := &Config{}
	c.Server.Address = ":3000"
	c.Server.Threads = 1
	c.Server.MaxBodySize = "4 MiB"
	c.Server.ReadTimeout = 30 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	c.Logging.Level = "info"
	c.App.Name = "simple-dispatch"
	c.App.StaticDir = "./static"
	return c
}

// Load overlays the YAML file at path on top of Default. A missing file
// is returned as an error satisfying os.IsNotExist.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overrides c with SIMPLE_DISPATCH_* variables looked up
// through getenv. It reports whether any variable was set.
func ApplyEnv(c *Config, getenv func(string) string) (bool, error) {
	used := false
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(EnvPrefix + name)); v != "" {
			*dst = v
			used = true
		}
	}
	str("ADDR", &c.Server.Address)
	str("MAX_BODY_SIZE", &c.Server.MaxBodySize)
	str("METRICS_ADDR", &c.Metrics.Address)
	str("LOG_LEVEL", &c.Logging.Level)
	str("APP_NAME", &c.App.Name)
	str("STATIC_DIR", &c.App.StaticDir)

	if v := strings.TrimSpace(getenv(EnvPrefix + "THREADS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return used, fmt.Errorf("%sTHREADS: %w", EnvPrefix, err)
		}
		c.Server.Threads = n
		used = true
	}
	if v := strings.TrimSpace(getenv(EnvPrefix + "SANITIZE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return used, fmt.Errorf("%sSANITIZE: %w", EnvPrefix, err)
		}
		c.Server.Sanitize = b
		used = true
	}
	for name, dst := range map[string]*time.Duration{
		"READ_TIMEOUT":  &c.Server.ReadTimeout,
		"WRITE_TIMEOUT": &c.Server.WriteTimeout,
		"IDLE_TIMEOUT":  &c.Server.IdleTimeout,
	} {
		v := strings.TrimSpace(getenv(EnvPrefix + name))
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return used, fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
		used = true
	}
	return used, nil
}

// MaxBodyBytes parses Server.MaxBodySize. An empty value means zero,
// which the server treats as its own default.
func (c *Config) MaxBodyBytes() (int, error) {
	if strings.TrimSpace(c.Server.MaxBodySize) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.Server.MaxBodySize)
	if err != nil {
		return 0, fmt.Errorf("max_body_size: %w", err)
	}
	if n > 1<<31-1 {
		return 0, fmt.Errorf("max_body_size: %s is too large", c.Server.MaxBodySize)
	}
	return int(n), nil
}

// Validate reports the first setting that cannot be served.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Address) == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Server.Threads < 1 {
		return fmt.Errorf("server.threads must be at least 1, got %d", c.Server.Threads)
	}
	if c.Server.Concurrency < 0 {
		return fmt.Errorf("server.concurrency must not be negative")
	}
	if _, err := c.MaxBodyBytes(); err != nil {
		return err
	}
	if c.Metrics.Address != "" && c.Metrics.Address == c.Server.Address {
		return fmt.Errorf("metrics.address must differ from server.address")
	}
	return nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr    = "127.0.0.1:5500"
	DefaultVersion = "HTTP/1.1"
	DefaultTimeout = 10 * time.Second
)

// Config is intentionally small. The same struct is decoded from JSON, TOML
// or YAML; see Load.
// If Users is empty, dirserve runs without auth.
type Config struct {
	// Addr is the TCP listen address.
	Addr string `json:"addr" toml:"addr" yaml:"addr"`

	// Root is the directory served by dirserve. Every request path is resolved
	// below it. Default: the working directory at startup.
	Root string `json:"root" toml:"root" yaml:"root"`

	// Version is written at the start of every status line.
	Version string `json:"version,omitempty" toml:"version" yaml:"version,omitempty"`

	// Timeout bounds the whole exchange on one connection (read + write).
	// Unset means DefaultTimeout; a negative value disables the deadline.
	Timeout Duration `json:"timeout,omitempty" toml:"timeout" yaml:"timeout,omitempty"`

	// NoColor disables colored status text in the access log.
	NoColor bool `json:"noColor,omitempty" toml:"noColor" yaml:"noColor,omitempty"`

	// AuthOptional lets requests without Authorization through as anonymous
	// when Users is set; ACLs then decide what anonymous users may read.
	AuthOptional bool `json:"authOptional,omitempty" toml:"authOptional" yaml:"authOptional,omitempty"`

	// Users is a map of username -> bcrypt hash.
	// Example:
	// "alice": {"bcrypt":"$2a$10$..."}
	Users map[string]User `json:"users,omitempty" toml:"users" yaml:"users,omitempty"`

	// ACLs is a first-match rule list by path prefix. Only read access exists.
	ACLs []ACL `json:"acls,omitempty" toml:"acls" yaml:"acls,omitempty"`
}

type User struct {
	Bcrypt string `json:"bcrypt" toml:"bcrypt" yaml:"bcrypt"`
}

type ACL struct {
	// Path is a prefix match, always interpreted as a clean path like "/photos".
	Path string `json:"path" toml:"path" yaml:"path"`
	// Read allows listing/downloading.
	Read []string `json:"read,omitempty" toml:"read" yaml:"read,omitempty"` // usernames or "*"
}

// Duration is a time.Duration that decodes from strings like "10s".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Load reads a config file, choosing the decoder by extension.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Normalize fills defaults and makes Root absolute.
func (c *Config) Normalize() error {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = DefaultAddr
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(DefaultTimeout)
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}
	if strings.TrimSpace(c.Root) == "" {
		c.Root = "."
	}
	abs, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("abs root: %w", err)
	}
	c.Root = abs
	return nil
}

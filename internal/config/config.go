// Package config provides YAML-based configuration loading for PartVault.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Roles a configured user may hold.
const (
	RoleAdmin    = "admin"
	RoleDesigner = "designer"
	RoleViewer   = "viewer"
)

// Config is the top-level PartVault configuration, loaded from partvault.yaml.
type Config struct {
	User      UserConfig     `yaml:"user"`
	Database  DatabaseConfig `yaml:"database"`
	Repo      RepoConfig     `yaml:"repo"`
	Reviewers []string       `yaml:"reviewers"`
}

// UserConfig identifies the local operator and their role.
type UserConfig struct {
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

// DatabaseConfig selects the metadata store backend. The sqlite driver is
// the default for a local workstation; mysql covers a shared team server.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or mysql
	Path   string `yaml:"path"`   // sqlite database file
	Host   string `yaml:"host"`   // mysql only
	Port   int    `yaml:"port"`
	Name   string `yaml:"name"`
	DBUser string `yaml:"user"`
}

// RepoConfig holds the local design repository settings.
type RepoConfig struct {
	Path        string   `yaml:"path"`
	LfsPatterns []string `yaml:"lfs_patterns"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.User.Role == "" {
		c.User.Role = RoleDesigner
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "partvault.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.DBUser == "" {
			c.Database.DBUser = "root"
		}
	}
	if len(c.Repo.LfsPatterns) == 0 {
		c.Repo.LfsPatterns = []string{"*.step", "*.stl", "*.pdf", "*.bin"}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.User.Name == "" {
		errs = append(errs, "user.name is required")
	}
	switch c.User.Role {
	case RoleAdmin, RoleDesigner, RoleViewer:
	default:
		errs = append(errs, fmt.Sprintf("user.role %q is not one of admin, designer, viewer", c.User.Role))
	}
	switch c.Database.Driver {
	case "sqlite":
	case "mysql":
		if c.Database.Name == "" {
			errs = append(errs, "database.name is required for mysql")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not one of sqlite, mysql", c.Database.Driver))
	}
	if c.Repo.Path == "" {
		errs = append(errs, "repo.path is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

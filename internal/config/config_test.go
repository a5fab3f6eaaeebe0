package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullYAML = `
user:
  name: alice
  role: admin

database:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  name: partvault_team
  user: plm

repo:
  path: /srv/designs/widgets
  lfs_patterns: ["*.step", "*.iges"]

reviewers:
  - bob
  - carol
`

const minimalYAML = `
user:
  name: bob
repo:
  path: /home/bob/designs
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.User.Name != "alice" {
		t.Errorf("User.Name = %q, want %q", cfg.User.Name, "alice")
	}
	if cfg.User.Role != RoleAdmin {
		t.Errorf("User.Role = %q, want %q", cfg.User.Role, RoleAdmin)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, "mysql")
	}
	if cfg.Database.Host != "10.0.0.5" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "10.0.0.5")
	}
	if cfg.Database.Port != 3307 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 3307)
	}
	if cfg.Database.Name != "partvault_team" {
		t.Errorf("Database.Name = %q, want %q", cfg.Database.Name, "partvault_team")
	}
	if cfg.Repo.Path != "/srv/designs/widgets" {
		t.Errorf("Repo.Path = %q, want %q", cfg.Repo.Path, "/srv/designs/widgets")
	}
	if len(cfg.Repo.LfsPatterns) != 2 {
		t.Errorf("len(Repo.LfsPatterns) = %d, want 2", len(cfg.Repo.LfsPatterns))
	}
	if len(cfg.Reviewers) != 2 {
		t.Fatalf("len(Reviewers) = %d, want 2", len(cfg.Reviewers))
	}
	if cfg.Reviewers[0] != "bob" {
		t.Errorf("Reviewers[0] = %q, want %q", cfg.Reviewers[0], "bob")
	}
}

func TestParse_MinimalConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.User.Role != RoleDesigner {
		t.Errorf("User.Role = %q, want %q (default)", cfg.User.Role, RoleDesigner)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want %q (default)", cfg.Database.Driver, "sqlite")
	}
	if cfg.Database.Path != "partvault.db" {
		t.Errorf("Database.Path = %q, want %q (default)", cfg.Database.Path, "partvault.db")
	}
	if len(cfg.Repo.LfsPatterns) == 0 {
		t.Error("Repo.LfsPatterns empty, want defaults")
	}
}

func TestParse_MysqlDefaults(t *testing.T) {
	yaml := `
user:
  name: alice
database:
  driver: mysql
  name: partvault
repo:
  path: /srv/designs
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "127.0.0.1" {
		t.Errorf("Database.Host = %q, want %q (default)", cfg.Database.Host, "127.0.0.1")
	}
	if cfg.Database.Port != 3306 {
		t.Errorf("Database.Port = %d, want %d (default)", cfg.Database.Port, 3306)
	}
	if cfg.Database.DBUser != "root" {
		t.Errorf("Database.DBUser = %q, want %q (default)", cfg.Database.DBUser, "root")
	}
}

func TestParse_MissingUserName(t *testing.T) {
	yaml := `
repo:
  path: /srv/designs
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for missing user.name")
	}
	if !strings.Contains(err.Error(), "user.name is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "user.name is required")
	}
}

func TestParse_MissingRepoPath(t *testing.T) {
	yaml := `
user:
  name: alice
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for missing repo.path")
	}
	if !strings.Contains(err.Error(), "repo.path is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "repo.path is required")
	}
}

func TestParse_InvalidRole(t *testing.T) {
	yaml := `
user:
  name: alice
  role: superuser
repo:
  path: /srv/designs
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for invalid role")
	}
	if !strings.Contains(err.Error(), "user.role") {
		t.Errorf("error = %q, want to mention user.role", err.Error())
	}
}

func TestParse_InvalidDriver(t *testing.T) {
	yaml := `
user:
  name: alice
database:
  driver: postgres
repo:
  path: /srv/designs
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for invalid driver")
	}
	if !strings.Contains(err.Error(), "database.driver") {
		t.Errorf("error = %q, want to mention database.driver", err.Error())
	}
}

func TestParse_MysqlWithoutName(t *testing.T) {
	yaml := `
user:
  name: alice
database:
  driver: mysql
repo:
  path: /srv/designs
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for mysql without database.name")
	}
	if !strings.Contains(err.Error(), "database.name is required for mysql") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "database.name is required for mysql")
	}
}

func TestParse_MultipleValidationErrors(t *testing.T) {
	yaml := `
user:
  role: viewer
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "user.name is required") {
		t.Errorf("error missing 'user.name is required': %s", msg)
	}
	if !strings.Contains(msg, "repo.path is required") {
		t.Errorf("error missing 'repo.path is required': %s", msg)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte(":::invalid"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse:") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: parse:")
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partvault.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.User.Name != "bob" {
		t.Errorf("User.Name = %q, want %q", cfg.User.Name, "bob")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/partvault.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: read")
	}
}

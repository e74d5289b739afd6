package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdkerrors "github.com/skillportio/sdk/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SKILLPORT_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.Locale != "en" {
		t.Errorf("locale = %q, want en", cfg.Agent.Locale)
	}
	if !strings.Contains(cfg.Database.Path, ".skillport") {
		t.Errorf("database path = %q, want under .skillport", cfg.Database.Path)
	}
	if cfg.GitHub.RequestsPerHour != 3600 {
		t.Errorf("requests_per_hour = %d", cfg.GitHub.RequestsPerHour)
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv("SKILLPORT_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")

	path := filepath.Join(t.TempDir(), "agent.yaml")
	content := `
agent:
  verbose: true
  locale: zh
database:
  path: /tmp/test/skillport.db
install:
  dir: /tmp/test/skills
github:
  token: file-token
  requests_per_hour: 100
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Agent.Verbose || cfg.Agent.Locale != "zh" {
		t.Errorf("agent = %+v", cfg.Agent)
	}
	if cfg.Database.Path != "/tmp/test/skillport.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.GitHub.Token != "file-token" || cfg.GitHub.RequestsPerHour != 100 {
		t.Errorf("github = %+v", cfg.GitHub)
	}
}

func TestLoad_EnvTokenOverride(t *testing.T) {
	t.Setenv("SKILLPORT_GITHUB_TOKEN", "env-token")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "env-token" {
		t.Errorf("token = %q, want env override", cfg.GitHub.Token)
	}
}

func TestLoad_TokenPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte("github:\n  token: file-token\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// GITHUB_TOKEN is a fallback only; a configured token wins.
	t.Setenv("SKILLPORT_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "ambient-token")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "file-token" {
		t.Errorf("token = %q, want file token over GITHUB_TOKEN", cfg.GitHub.Token)
	}

	// With no configured token the ambient one applies.
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "ambient-token" {
		t.Errorf("token = %q, want GITHUB_TOKEN fallback", cfg.GitHub.Token)
	}

	// SKILLPORT_GITHUB_TOKEN overrides everything.
	t.Setenv("SKILLPORT_GITHUB_TOKEN", "explicit-token")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "explicit-token" {
		t.Errorf("token = %q, want SKILLPORT_GITHUB_TOKEN override", cfg.GitHub.Token)
	}
}

func TestLoad_InvalidLocaleFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte("agent:\n  locale: de\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.Locale != "en" {
		t.Errorf("locale = %q, want fallback en", cfg.Agent.Locale)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !sdkerrors.IsNotFound(err) {
		t.Errorf("Load = %v, want not found", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte("agent: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if sdkerrors.GetKind(err) != sdkerrors.KindInvalidInput {
		t.Errorf("Load = %v, want invalid input", err)
	}
}

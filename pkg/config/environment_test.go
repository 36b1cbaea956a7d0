package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvironmentsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "environments.yaml")
	content := `
environments:
  - name: Staging
    url: https://staging.example.com
  - name: Production
    url: https://twin.example.com
selected: Staging
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write environments file: %v", err)
	}

	envs, err := LoadEnvironmentsFromFile(path)
	if err != nil {
		t.Fatalf("Failed to load environments: %v", err)
	}
	if len(envs.Environments) != 2 {
		t.Fatalf("Expected 2 environments, got %d", len(envs.Environments))
	}
	if envs.Environments[0].Name != "Staging" {
		t.Errorf("Expected Staging first, got %s", envs.Environments[0].Name)
	}
	if envs.Selected != "Staging" {
		t.Errorf("Expected Staging selected, got %s", envs.Selected)
	}
}

func TestLoadEnvironmentsMissingFileFallsBack(t *testing.T) {
	envs, err := LoadEnvironmentsFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Expected default environments, got error: %v", err)
	}
	if len(envs.Environments) != 1 {
		t.Fatalf("Expected 1 default environment, got %d", len(envs.Environments))
	}
	if envs.Environments[0].URL != "http://localhost:8080" {
		t.Errorf("Expected local URL default, got %s", envs.Environments[0].URL)
	}
}

func TestLoadEnvironmentsRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "environments.yaml")
	if err := os.WriteFile(path, []byte("environments: ["), 0644); err != nil {
		t.Fatalf("Failed to write environments file: %v", err)
	}
	if _, err := LoadEnvironmentsFromFile(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

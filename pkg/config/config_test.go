package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "hub")
	path := writeFile(t, "name: ${SAMPLE_NAME}\nport: 80\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Name != "hub" || s.Port != 80 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeFile(t, "name: x\nport: 0\n")

	var s sample
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOptional_MissingKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &s); err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if s.Name != "default" || s.Port != 8080 {
		t.Errorf("defaults changed: %+v", s)
	}
}

func TestLoadOptional_MissingStillValidates(t *testing.T) {
	var s sample
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Fatal("expected validation error for zero defaults")
	}
}

func TestLoadOptional_OverridesDefaults(t *testing.T) {
	path := writeFile(t, "port: 9000\n")
	s := sample{Name: "default", Port: 8080}
	if err := LoadOptional(path, &s); err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if s.Name != "default" || s.Port != 9000 {
		t.Errorf("got %+v", s)
	}
}

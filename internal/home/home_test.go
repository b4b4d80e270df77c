package home

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-notewise")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-notewise" {
			t.Errorf("expected path /tmp/test-notewise, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		t.Setenv(EnvVar, "")
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})

	t.Run("environment variable", func(t *testing.T) {
		want := filepath.Join(t.TempDir(), "from-env")
		t.Setenv(EnvVar, want)
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != want {
			t.Errorf("expected path %s, got %s", want, dir.Path())
		}
		if explicit, _ := New("/tmp/flag-wins"); explicit.Path() != "/tmp/flag-wins" {
			t.Errorf("explicit path should win over %s", EnvVar)
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-notewise")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-notewise/config.yaml"},
		{"EnvPath", dir.EnvPath(), "/tmp/test-notewise/.env"},
		{"PromptsDir", dir.PromptsDir(), "/tmp/test-notewise/prompts"},
		{"ExportsDir", dir.ExportsDir(), "/tmp/test-notewise/exports"},
		{
			"ExportPath",
			dir.ExportPath("notes", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)),
			"/tmp/test-notewise/exports/notes-20250102-030405.xlsx",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, tt.got)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	dir, err := New(filepath.Join(tmpDir, "notewise-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(dir.Path()); !os.IsNotExist(err) {
		t.Error("directory should not exist yet")
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}
	if info, err := os.Stat(dir.Path()); err != nil || !info.IsDir() {
		t.Error("directory should exist after EnsureExists")
	}
	for _, sub := range []string{dir.PromptsDir(), dir.ExportsDir()} {
		if info, err := os.Stat(sub); err != nil || !info.IsDir() {
			t.Errorf("%s was not created", sub)
		}
	}

	if err := dir.EnsureExists(); err != nil {
		t.Errorf("second EnsureExists failed: %v", err)
	}
}

func TestDir_ConfigExists(t *testing.T) {
	dir, _ := New(t.TempDir())
	if dir.ConfigExists() {
		t.Error("config should not exist")
	}
	if err := os.WriteFile(dir.ConfigPath(), []byte("defaults: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !dir.ConfigExists() {
		t.Error("config should exist")
	}
}

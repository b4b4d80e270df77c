// Package home locates the notewise home directory, where the config file,
// a .env with API keys, prompt overrides and spreadsheet exports live.
package home

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultDirName = ".notewise"
	// EnvVar names a home directory to use when none is given on the
	// command line.
	EnvVar = "NOTEWISE_HOME"

	ConfigFileName = "config.yaml"
	EnvFileName    = ".env"
	PromptsDirName = "prompts"
	ExportsDirName = "exports"

	exportStamp = "20060102-150405"
)

type Dir struct {
	root string
}

// New resolves the home directory: path if set, then $NOTEWISE_HOME, then
// ~/.notewise. Nothing is created until EnsureExists.
func New(path string) (*Dir, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate notewise home: %w", err)
		}
		path = filepath.Join(userHome, DefaultDirName)
	}
	return &Dir{root: filepath.Clean(path)}, nil
}

func (d *Dir) Path() string { return d.root }

func (d *Dir) join(elem ...string) string {
	return filepath.Join(append([]string{d.root}, elem...)...)
}

func (d *Dir) ConfigPath() string { return d.join(ConfigFileName) }
func (d *Dir) EnvPath() string    { return d.join(EnvFileName) }
func (d *Dir) PromptsDir() string { return d.join(PromptsDirName) }
func (d *Dir) ExportsDir() string { return d.join(ExportsDirName) }

// ExportPath names a spreadsheet export, e.g. exports/notes-20250102-030405.xlsx.
// The stamp is UTC so exports sort the same on every machine.
func (d *Dir) ExportPath(prefix string, at time.Time) string {
	return d.join(ExportsDirName, prefix+"-"+at.UTC().Format(exportStamp)+".xlsx")
}

// EnsureExists creates the home directory with its prompts and exports
// subdirectories. It is safe to call repeatedly.
func (d *Dir) EnsureExists() error {
	for _, sub := range []string{PromptsDirName, ExportsDirName} {
		if err := os.MkdirAll(d.join(sub), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d.join(sub), err)
		}
	}
	return nil
}

// ConfigExists reports whether config.yaml is present. Permission errors
// count as present so `config init` will not clobber a file it cannot read.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return !errors.Is(err, fs.ErrNotExist)
}

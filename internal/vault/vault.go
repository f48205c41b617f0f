// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vault persists finished digests as Markdown notes with YAML
// frontmatter, one file per ISO week.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/digest-engine/internal/period"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// Writer writes digest notes into a vault directory.
type Writer struct {
	dir string
}

// NewWriter builds a writer for the configured vault path, defaulting
// to ./digests.
func NewWriter(cfg types.VaultConfig) *Writer {
	dir := cfg.Path
	if dir == "" {
		dir = "digests"
	}
	return &Writer{dir: dir}
}

// frontmatter is the YAML header prepended to every note.
type frontmatter struct {
	Created string `yaml:"created"`
	Week    string `yaml:"week"`
	Type    string `yaml:"type"`
	Source  string `yaml:"source"`
}

// Save writes the digest for the week containing asOf and returns the
// note's path. An existing note for the same week is overwritten.
func (w *Writer) Save(content string, asOf time.Time) (string, error) {
	return w.save(period.FromTime(asOf), content, asOf)
}

// SaveWeek writes the digest under an explicit week ID, stamping the
// current time. Used when re-running the pipeline for a past week.
func (w *Writer) SaveWeek(weekID, content string) (string, error) {
	return w.save(weekID, content, time.Now())
}

func (w *Writer) save(weekID, content string, createdAt time.Time) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating vault directory: %w", err)
	}

	header, err := yaml.Marshal(frontmatter{
		Created: createdAt.UTC().Format(time.RFC3339),
		Week:    weekID,
		Type:    "weekly-digest",
		Source:  "digest-engine",
	})
	if err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}

	path := w.Path(weekID)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing digest note: %w", err)
	}
	return path, nil
}

// Path returns the note path for a week ID without touching the disk.
func (w *Writer) Path(weekID string) string {
	return filepath.Join(w.dir, weekID+".md")
}

// Exists reports whether a note for the week is already on disk.
func (w *Writer) Exists(weekID string) bool {
	_, err := os.Stat(w.Path(weekID))
	return err == nil
}

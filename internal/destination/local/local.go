// Package local writes exports into a directory on disk.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"expensetracker/internal/export"
)

const Name = "local"

type Dir struct {
	path string
}

func New(path string) (*Dir, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("export directory is empty")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &Dir{path: path}, nil
}

func (d *Dir) Name() string { return Name }

// Deliver writes the document under its base filename, replacing any file
// with the same name.
func (d *Dir) Deliver(ctx context.Context, doc export.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Base(strings.TrimSpace(doc.Filename))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("invalid filename %q", doc.Filename)
	}

	target := filepath.Join(d.path, name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, doc.Body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename %s: %w", tmp, err)
	}
	return target, nil
}

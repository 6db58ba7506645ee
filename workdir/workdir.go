// Package workdir owns the per-conversion working directories under a
// single root: creating them, finding what the extractor left inside,
// keeping in-flight ones fresh and sweeping stale ones.
package workdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const CookieFile = "cookies.txt"

// ErrNoOutput is returned by FindOutput when nothing matched.
var ErrNoOutput = errors.New("no output file found")

type Store struct {
	Root string
}

func (s Store) Path(id string) string {
	return filepath.Join(s.Root, id)
}

func (s Store) Create(id string) (string, error) {
	dir := s.Path(id)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("creating working directory: %w", err)
	}
	return dir, nil
}

func (s Store) CookiePath(id string) string {
	return filepath.Join(s.Path(id), CookieFile)
}

// Find returns the output file in the id's directory.
func (s Store) Find(id string, exts ...string) (string, error) {
	return FindOutput(s.Path(id), exts...)
}

// Contains reports whether path lies inside the id's directory.
func (s Store) Contains(id, path string) bool {
	rel, err := filepath.Rel(s.Path(id), path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// FindOutput scans dir (not recursively) for regular files ending in one of
// exts. When several match, the most recently modified wins and ties go to
// the lexically smallest name.
func FindOutput(dir string, exts ...string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoOutput
		}
		return "", err
	}

	type candidate struct {
		name    string
		modTime time.Time
	}
	var found []candidate
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !hasExt(entry.Name(), exts) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // removed while scanning
		}
		found = append(found, candidate{name: entry.Name(), modTime: info.ModTime()})
	}
	if len(found) == 0 {
		return "", ErrNoOutput
	}

	best := slices.MinFunc(found, func(a, b candidate) int {
		if c := b.modTime.Compare(a.modTime); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	return filepath.Join(dir, best.name), nil
}

func hasExt(name string, exts []string) bool {
	ext := filepath.Ext(name)
	return ext != "" && slices.Contains(exts, ext)
}

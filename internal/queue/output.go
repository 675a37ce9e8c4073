package queue

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// CleanedPrefix marks every cleaned artifact's filename.
	CleanedPrefix = "clean_"
	// ArchiveName is the fixed name of the batch archive.
	ArchiveName = "scrub_cleaned.zip"
)

// CleanedName prefixes the original filename for a cleaned artifact.
func CleanedName(name string) string {
	return CleanedPrefix + filepath.Base(name)
}

// WriteCleaned writes one cleaned payload into dir under its prefixed
// name. A no-op returning "" when the entry has no cleaned payload.
func (q *Queue) WriteCleaned(id, dir string) (string, error) {
	img, ok := q.Get(id)
	if !ok || img.Cleaned == nil {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	dest := filepath.Join(dir, CleanedName(img.Source.Name))
	if err := writeAtomic(dest, func(f *os.File) error {
		_, err := f.Write(img.Cleaned)
		return err
	}); err != nil {
		return "", err
	}
	return dest, nil
}

// WriteArchive zips every cleaned payload under its prefixed name into a
// single archive at path. A no-op returning 0 when nothing is cleaned.
func (q *Queue) WriteArchive(path string) (int, error) {
	var cleaned []TrackedImage
	for _, img := range q.Snapshot() {
		if img.Cleaned != nil {
			cleaned = append(cleaned, img)
		}
	}
	if len(cleaned) == 0 {
		return 0, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}

	err := writeAtomic(path, func(f *os.File) error {
		zw := zip.NewWriter(f)
		for _, img := range cleaned {
			w, err := zw.Create(CleanedName(img.Source.Name))
			if err != nil {
				return err
			}
			if _, err := w.Write(img.Cleaned); err != nil {
				return err
			}
		}
		return zw.Close()
	})
	if err != nil {
		return 0, err
	}
	return len(cleaned), nil
}

// writeAtomic writes through a temp file in the destination directory
// and renames into place, so a failed write never leaves a partial
// artifact behind.
func writeAtomic(dest string, fill func(*os.File) error) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, "scrub-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), dest); err == nil {
		return nil
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	return nil
}

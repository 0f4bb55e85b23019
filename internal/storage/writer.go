package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// BackupSuffix is appended to the dataset path for the pre-write copy
const BackupSuffix = ".backup"

// Writer persists rendered dataset content
type Writer interface {
	Write(path string, content []byte, count int) error
}

// FileWriter writes the dataset to disk. The previous file is copied to
// <path>.backup first and the new content replaces it with a rename, so readers
// never see a partial file.
type FileWriter struct{}

// NewFileWriter creates a FileWriter
func NewFileWriter() *FileWriter {
	return &FileWriter{}
}

// Write implements Writer
func (w *FileWriter) Write(path string, content []byte, count int) error {
	if err := backup(path); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating dataset directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting dataset permissions: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing dataset: %w", err)
	}
	return nil
}

// backup copies the current dataset aside. A missing dataset needs no backup.
func backup(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading dataset for backup: %w", err)
	}
	if err := os.WriteFile(path+BackupSuffix, data, 0644); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	return nil
}

// DefaultPreviewLength is how much of the rendered dataset a dry run prints
const DefaultPreviewLength = 500

// DryRunWriter prints what would be written without touching the file system
type DryRunWriter struct {
	out        io.Writer
	previewLen int
}

// NewDryRunWriter creates a dry-run writer that prints to out
func NewDryRunWriter(out io.Writer) *DryRunWriter {
	return &DryRunWriter{out: out, previewLen: DefaultPreviewLength}
}

// Write implements Writer
func (w *DryRunWriter) Write(path string, content []byte, count int) error {
	preview := string(content)
	truncated := false
	if utf8.RuneCountInString(preview) > w.previewLen {
		preview = string([]rune(preview)[:w.previewLen])
		truncated = true
	}

	fmt.Fprintf(w.out, "DRY RUN - would write %d events to %s\n", count, path)
	fmt.Fprintln(w.out, "--- preview ---")
	fmt.Fprint(w.out, preview)
	if truncated {
		fmt.Fprint(w.out, "\n...")
	}
	fmt.Fprintf(w.out, "\n--- %d bytes total ---\n", len(content))
	return nil
}

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bigislandtech/meetup-sync/internal/event"
)

// LoadReport describes what Load found in the dataset
type LoadReport struct {
	Path    string
	Format  string
	Loaded  int
	Dropped int // records that could not be parsed or lack a usable id
}

// Store handles persistence of the events dataset
type Store struct {
	path  string
	codec Codec
}

// New creates a Store for path. The codec follows the file extension.
func New(path, arrayName string) *Store {
	return &Store{
		path:  path,
		codec: CodecFor(path, arrayName),
	}
}

// Path returns the dataset file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the current dataset. A blank file holds no records. A missing file
// is an error wrapping fs.ErrNotExist; any other error means the file exists but
// cannot be read as a dataset and must not be overwritten.
func (s *Store) Load() ([]*event.Event, LoadReport, error) {
	report := LoadReport{Path: s.path, Format: s.codec.Format()}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, report, fmt.Errorf("reading dataset: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []*event.Event{}, report, nil
	}

	events, dropped, err := s.codec.Decode(data)
	if err != nil {
		return nil, report, fmt.Errorf("decoding dataset %s: %w", s.path, err)
	}

	report.Loaded = len(events)
	report.Dropped = dropped
	return events, report, nil
}

// Render encodes events against the current file content. A missing file renders
// a fresh dataset.
func (s *Store) Render(events []*event.Event) ([]byte, error) {
	current, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return s.codec.Encode(current, events)
}

// Save renders events and hands the result to w
func (s *Store) Save(events []*event.Event, w Writer) error {
	content, err := s.Render(events)
	if err != nil {
		return fmt.Errorf("rendering dataset: %w", err)
	}
	return w.Write(s.path, content, len(events))
}

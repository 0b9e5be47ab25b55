// Package storage persists aggregation output as flat JSON documents.
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"finpull/internal/domain/extract"
)

// FileSink writes one JSON document per item identifier. A second persist
// for the same identifier overwrites the first; there are no merge
// semantics and the overwrite is not atomic.
type FileSink struct {
	dir string
}

var _ extract.Sink = (*FileSink)(nil)

// NewFileSink ensures the storage directory exists.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Persist(identifier string, results map[extract.Kind]*extract.FetchResult) (string, error) {
	// Identifiers become filenames; never let them escape the directory.
	if identifier == "" || strings.ContainsAny(identifier, `/\`) || identifier != filepath.Base(identifier) {
		return "", fmt.Errorf("%w: unsafe item identifier %q", extract.ErrValidation, identifier)
	}

	data, err := marshalRun(results)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("transactions_%s.json", identifier))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriterSink serializes a run to an io.Writer, pretty-printed. Used for
// CLI stdout and HTTP response bodies.
type WriterSink struct {
	w io.Writer
}

var _ extract.Sink = (*WriterSink)(nil)

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Persist(identifier string, results map[extract.Kind]*extract.FetchResult) (string, error) {
	data, err := marshalRun(results)
	if err != nil {
		return "", err
	}
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return "", fmt.Errorf("failed to write output: %w", err)
	}
	return identifier, nil
}

// marshalRun flattens a run into one document keyed by resource kind, each
// value the upstream payload verbatim. Access tokens never enter a
// FetchResult, so they can never appear here.
func marshalRun(results map[extract.Kind]*extract.FetchResult) ([]byte, error) {
	doc := make(map[extract.Kind]json.RawMessage, len(results))
	for kind, result := range results {
		doc[kind] = result.Payload
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run output: %w", err)
	}
	return data, nil
}

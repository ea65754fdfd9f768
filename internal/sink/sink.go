// Package sink persists evaluation rows as per-model append-only JSONL
// streams. A stream is safe for concurrent appenders: each append is one
// complete newline-terminated record.
package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Dir is a results directory holding one JSONL file per model.
type Dir struct {
	root string
}

// NewDir creates the results directory if needed.
func NewDir(root string) (*Dir, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("sink: empty directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("sink: create %q: %w", root, err)
	}
	return &Dir{root: root}, nil
}

// Root returns the results directory path.
func (d *Dir) Root() string {
	if d == nil {
		return ""
	}
	return d.root
}

// OpenModel opens (and truncates) the stream for one model, so stale rows
// from a prior run with the same output path never mix with current ones.
func (d *Dir) OpenModel(model string) (*File, error) {
	if d == nil {
		return nil, errors.New("sink: nil dir")
	}
	name := SafeName(model)
	if name == "" {
		return nil, fmt.Errorf("sink: unusable model name %q", model)
	}

	path := filepath.Join(d.root, name+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink: open %q: %w", path, err)
	}
	return &File{f: f, path: path}, nil
}

// File is one model's result stream.
type File struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Append serializes v and writes it as a single record. Concurrent calls
// never interleave partial records.
func (f *File) Append(v any) error {
	if f == nil || f.f == nil {
		return errors.New("sink: nil file")
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sink: marshal row: %w", err)
	}
	b = append(b, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.f.Write(b); err != nil {
		return fmt.Errorf("sink: append %q: %w", f.path, err)
	}
	return nil
}

// Path returns the underlying file path.
func (f *File) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// Close closes the stream.
func (f *File) Close() error {
	if f == nil || f.f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.Close()
}

var unsafeNameRE = regexp.MustCompile(`[^A-Za-z0-9._()-]+`)

// SafeName turns a model display name into a filesystem-safe identifier.
func SafeName(model string) string {
	s := unsafeNameRE.ReplaceAllString(strings.TrimSpace(model), "_")
	return strings.Trim(s, "._")
}

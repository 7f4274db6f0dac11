package store

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Doc is a single JSON document on disk with an in-process copy of its last
// known bytes. Every Load decodes a fresh value, so callers may mutate what
// they get back without affecting the cache.
type Doc[T any] struct {
	mu     sync.Mutex
	path   string
	raw    []byte
	cached bool
}

// NewDoc returns a document backed by path.
func NewDoc[T any](path string) *Doc[T] {
	return &Doc[T]{path: path}
}

// Path returns the backing file path.
func (d *Doc[T]) Path() string { return d.path }

// Load decodes the document. ok is false when it has never been written.
func (d *Doc[T]) Load() (v T, ok bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.cached {
		data, found, err := readFile(d.path)
		if err != nil {
			return v, false, err
		}
		if !found {
			return v, false, nil
		}
		d.raw, d.cached = data, true
	}
	if err := json.Unmarshal(d.raw, &v); err != nil {
		return v, false, fmt.Errorf("store: decode %s: %w", d.path, err)
	}
	return v, true, nil
}

// Save replaces the document. The cache is updated only after the write
// succeeds.
func (d *Doc[T]) Save(v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", d.path, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := writeFileAtomic(d.path, data); err != nil {
		return err
	}
	d.raw, d.cached = data, true
	return nil
}

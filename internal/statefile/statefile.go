// Package statefile reads and writes the client's local JSON state files
// with atomic-replace semantics: a write lands in a temp file in the same
// directory, is flushed, then renamed over the target. A crash at any
// point leaves either the old file or the new one, never a torn mix.
package statefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReadJSON unmarshals path into v. The raw os.ReadFile error is returned
// untouched for a missing file so callers can map it to their own
// not-registered sentinel; decode failures are wrapped.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteJSON atomically replaces path with the JSON encoding of v.
func WriteJSON(path string, v any, mode os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := tmp.Chmod(mode); err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	name := tmp.Name()
	if err := tmp.Close(); err != nil {
		return err
	}
	tmp = nil

	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Whole-document JSON persistence for the policy and blacklist stores.
//
// Documents are read entirely into memory at startup and rewritten entirely on every mutation. Writes go to a temporary file in the same directory which is then renamed over the target, so a concurrent reader (or a crash mid-write) never observes a partial document.
//
// Documents are operator-editable, so comments and trailing commas are tolerated on load.
package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// Reads the document at path into out. A missing file is not an error: out is left untouched and `false` is returned, so callers can seed defaults and Save.
func Load(path string, out any) (bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading document: %w", err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(jsonc.ToJSON(raw), out); err != nil {
		return false, fmt.Errorf("parsing document %s: %w", path, err)
	}
	return true, nil
}

// Atomically replaces the document at path with the JSON encoding of v.
func Save(path string, v any) error {
	buf, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf); err != nil {
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
	return os.Rename(tmp.Name(), path)
}

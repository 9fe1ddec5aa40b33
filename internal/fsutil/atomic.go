// Package fsutil holds small filesystem helpers shared by the adapters.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TempFilePrefix marks the temporary files of an unfinished atomic write.
const TempFilePrefix = "stash-tmp-"

// IsTempFile reports whether name is a leftover of an atomic write.
func IsTempFile(name string) bool {
	return strings.HasPrefix(filepath.Base(name), TempFilePrefix)
}

// WriteFileAtomic replaces filename with data through a synced temp file in
// the same directory, so readers never observe a partial file. Missing parent
// directories are created.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	name := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(name)
		}
	}()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err = os.Chmod(name, perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err = os.Rename(name, filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	return nil
}

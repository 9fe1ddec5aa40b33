package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// IsDevRun reports whether the process runs via `go run` or `go test`.
// Both build binaries in temporary directories.
func IsDevRun() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}
	if strings.HasPrefix(strings.ToLower(exe), strings.ToLower(os.TempDir())) {
		return true
	}
	return strings.HasSuffix(exe, ".test") || strings.HasSuffix(exe, ".test.exe")
}

// Sandbox re-roots path into a temporary "stash-dev" directory when force is
// set. Paths already inside the temporary directory are trusted as is.
func Sandbox(path string, force bool) string {
	if !force {
		return path
	}

	clean := filepath.Clean(path)
	rel, err := filepath.Rel(os.TempDir(), clean)
	if err == nil && !strings.HasPrefix(rel, "..") {
		return clean
	}

	name := filepath.Base(clean)
	if path == "" || name == "." || name == string(os.PathSeparator) {
		name = "default"
	}
	return filepath.Join(os.TempDir(), "stash-dev", name)
}

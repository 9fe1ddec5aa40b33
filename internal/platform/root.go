package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "stash.yaml"

// ErrConfigNotFound is returned when no configuration file is found.
var ErrConfigNotFound = errors.New("config not found")

// FindConfig looks upwards from startDir for a stash.yaml file and returns
// its absolute path.
func FindConfig(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, ConfigFileName) {
			return filepath.Join(dir, ConfigFileName), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", ErrConfigNotFound
}

// ResolveConfigPath picks the configuration file. An explicit path wins,
// then $STASH_CONFIG, then a stash.yaml found upwards from the working
// directory, then the per-user file. An empty result means no file applies.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("STASH_CONFIG"); env != "" {
		return env
	}
	if wd, err := os.Getwd(); err == nil {
		if p, err := FindConfig(wd); err == nil {
			return p
		}
	}
	if dir, err := os.UserConfigDir(); err == nil {
		if hasFile(filepath.Join(dir, "stash"), ConfigFileName) {
			return filepath.Join(dir, "stash", ConfigFileName)
		}
	}
	return ""
}

// DataDir returns the directory holding local repositories,
// $STASH_HOME or e.g. ~/.local/share/stash.
func DataDir() (string, error) {
	if dir := os.Getenv("STASH_HOME"); dir != "" {
		return dir, nil
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "stash"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "stash"), nil
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSandbox(t *testing.T) {
	tmp := t.TempDir()
	devRoot := filepath.Join(os.TempDir(), "stash-dev")

	tests := []struct {
		name  string
		path  string
		force bool
		want  string
	}{
		{"Not Forced", "/home/me/stash", false, "/home/me/stash"},
		{"Re-rooted", "/home/me/notes", true, filepath.Join(devRoot, "notes")},
		{"Empty Path", "", true, filepath.Join(devRoot, "default")},
		{"Already In Temp", filepath.Join(tmp, "repo"), true, filepath.Join(tmp, "repo")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sandbox(tt.path, tt.force); got != tt.want {
				t.Errorf("Sandbox(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsDevRun(t *testing.T) {
	if !IsDevRun() {
		t.Error("test binaries are dev runs")
	}
}

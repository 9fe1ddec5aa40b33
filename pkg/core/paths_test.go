package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/stash/pkg/core"
)

func TestDataPath(t *testing.T) {
	it := core.Item{ID: "a1", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "data/2024-01-01T00:00:00Z-a1.json", core.DataPath(it))

	t.Run("Normalizes To UTC", func(t *testing.T) {
		loc := time.FixedZone("BRT", -3*60*60)
		it := core.Item{ID: "b2", CreatedAt: time.Date(2024, 1, 1, 9, 30, 0, 123000000, loc)}
		assert.Equal(t, "data/2024-01-01T12:30:00.123Z-b2.json", core.DataPath(it))
	})
}

func TestAssetPath(t *testing.T) {
	assert.Equal(t, "assets/x.jpg", core.AssetPath("x", ".JPG"))
	assert.Equal(t, "assets/x.webp", core.AssetPath("x", "webp"))
	assert.Equal(t, "assets/x.png", core.AssetPath("x", ""))
}

func TestIsAssetPath(t *testing.T) {
	assert.True(t, core.IsAssetPath("assets/x.png"))
	assert.False(t, core.IsAssetPath("assetsx.png"))
	assert.False(t, core.IsAssetPath("4f2a-id"))
}

func TestIsDataFile(t *testing.T) {
	assert.True(t, core.IsDataFile("2024-01-01T00:00:00Z-a1.json"))
	assert.False(t, core.IsDataFile("README.md"))
}

func TestMIMEType(t *testing.T) {
	tests := map[string]string{
		"assets/a.jpg":  "image/jpeg",
		"assets/a.JPEG": "image/jpeg",
		"assets/a.png":  "image/png",
		"assets/a.gif":  "image/gif",
		"assets/a.webp": "image/webp",
		"assets/a.svg":  "image/svg+xml",
		"assets/a.bmp":  core.DefaultMIME,
		"assets/noext":  core.DefaultMIME,
	}
	for p, want := range tests {
		t.Run(p, func(t *testing.T) {
			assert.Equal(t, want, core.MIMEType(p))
		})
	}

	assert.True(t, core.IsImageExt(".Png"))
	assert.False(t, core.IsImageExt(".txt"))
}

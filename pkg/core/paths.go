package core

import (
	"path"
	"strings"
)

// Remote layout.
const (
	DataDir   = "data"
	AssetsDir = "assets"
	DataExt   = ".json"
)

// DataPath derives the remote path of an item from its stored createdAt text
// and id. It is only a fallback: the path an item was first written to is
// recorded by the coordinator and always wins.
func DataPath(it Item) string {
	return path.Join(DataDir, it.CreatedText()+"-"+it.ID+DataExt)
}

// DataSuffix is the ending shared by every data object name of id.
func DataSuffix(id string) string {
	return "-" + id + DataExt
}

// AssetPath builds the path of an asset from its random name and extension.
func AssetPath(name, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "png"
	}
	return path.Join(AssetsDir, name+"."+ext)
}

// IsAssetPath reports whether p lies under the assets prefix.
func IsAssetPath(p string) bool {
	return strings.HasPrefix(p, AssetsDir+"/")
}

// IsDataFile reports whether a listed name is an item object.
func IsDataFile(name string) bool {
	return strings.HasSuffix(name, DataExt)
}

var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
}

// DefaultMIME is used for extensions outside the known image table.
const DefaultMIME = "image/png"

// MIMEType infers the MIME type of an asset from its extension.
func MIMEType(p string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if m, ok := mimeTypes[ext]; ok {
		return m
	}
	return DefaultMIME
}

// IsImageExt reports whether ext (with or without dot) is a known image extension.
func IsImageExt(ext string) bool {
	_, ok := mimeTypes[strings.TrimPrefix(strings.ToLower(ext), ".")]
	return ok
}

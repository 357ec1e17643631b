package files

import (
	"mime"
	"path/filepath"
	"strings"
)

func mimeType(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}

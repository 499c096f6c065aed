package util

import (
	"path/filepath"
	"strings"
)

// SafeFilePath cleans a relative path and rejects absolute paths and paths
// that escape the working directory.
func SafeFilePath(p string) (string, bool) {
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return "", false
	}
	return cleanNoEscape(p)
}

// SafeFilePathAllowAbsolute is SafeFilePath without the absolute-path
// restriction.
func SafeFilePathAllowAbsolute(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	return cleanNoEscape(p)
}

func cleanNoEscape(p string) (string, bool) {
	if strings.Contains(p, `\`) {
		return "", false
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}

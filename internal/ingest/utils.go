package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
)

// AllowedExt checks if a file extension is in the allowed set (pdf/jpg/jpeg/png).
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// IsPartial reports editor and browser temp files that are still being written.
func IsPartial(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return strings.HasPrefix(base, "~$") ||
		strings.HasSuffix(base, ".part") ||
		strings.HasSuffix(base, ".crdownload") ||
		strings.HasSuffix(base, ".tmp")
}

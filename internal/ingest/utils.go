package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/upi-extractor/constants"
)

// AllowedExt checks ext against exts, or the default image set when exts is nil.
func AllowedExt(ext string, exts map[string]struct{}) bool {
	if exts == nil {
		return constants.IsImageExt(ext)
	}
	_, ok := exts[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

func extSet(include []string) map[string]struct{} {
	if len(include) == 0 {
		return nil
	}
	exts := map[string]struct{}{}
	for _, e := range include {
		if e = constants.NormalizeExt(strings.TrimSpace(e)); e != "" {
			exts[e] = struct{}{}
		}
	}
	return exts
}

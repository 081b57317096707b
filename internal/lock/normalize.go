package lock

import (
	"path/filepath"
	"strings"
)

// NormalizePath resolves "." and ".." segments, collapses repeated
// separators, and lower-cases the result so two pilots spelling the
// same file differently ("./src/Main.go" vs "src/main.go") collide on
// the same lock row (spec §4.6 "normalizes the path").
//
// Lower-casing is blunt: it treats every filesystem as case
// insensitive, which is conservative (it can only cause a spurious
// conflict between two genuinely distinct case-sensitive paths, never
// a missed one) and keeps the projection schema storage-engine
// agnostic.
func NormalizePath(raw string) string {
	cleaned := filepath.ToSlash(filepath.Clean(raw))
	cleaned = strings.TrimPrefix(cleaned, "./")
	return strings.ToLower(cleaned)
}

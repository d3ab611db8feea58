package sync

import (
	"github.com/bmatcuk/doublestar/v4"
)

// excluder matches paths, relative to the synced roots, that shouldn't be
// mirrored. Excluded entries are never copied to the destination and never
// removed from it.
type excluder []string

func (ex excluder) excluded(relPath string) bool {
	for _, pattern := range ex {
		// Invalid patterns are rejected when the config is validated, so the
		// error can be ignored.
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

// ValidExcludePattern returns whether `pattern` is a valid exclusion pattern.
// Patterns use doublestar syntax, e.g. `**/*.tmp` or `build/**`.
func ValidExcludePattern(pattern string) bool {
	return doublestar.ValidatePattern(pattern)
}

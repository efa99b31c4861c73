// Package document decides which launch arguments and picker selections
// count as viewable documents.
package document

import "strings"

// SupportedExtensions lists viewable document suffixes, lowercase.
var SupportedExtensions = []string{".md", ".markdown", ".txt"}

// IsSupportedPath reports whether the lowercased path ends with a
// supported document extension. The path is not required to exist.
func IsSupportedPath(path string) bool {
	lowered := strings.ToLower(path)
	for _, extension := range SupportedExtensions {
		if strings.HasSuffix(lowered, extension) {
			return true
		}
	}
	return false
}

// FilterSupported returns the supported paths in their original order.
func FilterSupported(paths []string) []string {
	var supported []string
	for _, path := range paths {
		if IsSupportedPath(path) {
			supported = append(supported, path)
		}
	}
	return supported
}

// FirstSupported returns the first supported path, if any.
func FirstSupported(paths []string) (string, bool) {
	for _, path := range paths {
		if IsSupportedPath(path) {
			return path, true
		}
	}
	return "", false
}

// DialogPattern returns the file-filter pattern for native open dialogs,
// e.g. "*.md;*.markdown;*.txt".
func DialogPattern() string {
	patterns := make([]string, 0, len(SupportedExtensions))
	for _, extension := range SupportedExtensions {
		patterns = append(patterns, "*"+extension)
	}
	return strings.Join(patterns, ";")
}

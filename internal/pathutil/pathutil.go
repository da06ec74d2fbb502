package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandTilde replaces a leading "~" or "~/" with the user's home directory.
// Other paths, including "~user/...", are returned unchanged.
func ExpandTilde(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// SanitizeFilename keeps ASCII letters, digits and '.'; everything else,
// separators and spaces included, is dropped. Leading and trailing dots are
// trimmed so the result is never hidden or a relative path element.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '.' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return strings.Trim(b.String(), ".")
}

// DefaultOutputDir is the user's Downloads directory when it exists, else the
// current directory.
func DefaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	dir := filepath.Join(home, "Downloads")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return "."
}

// ResolveOutputDir expands, defaults and absolutizes a user-supplied directory.
func ResolveOutputDir(raw string) (string, error) {
	dir := strings.TrimSpace(raw)
	if dir == "" {
		dir = DefaultOutputDir()
	}
	expanded, err := ExpandTilde(dir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve output directory %s: %w", expanded, err)
	}
	return abs, nil
}

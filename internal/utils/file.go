package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var imageExts = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// GetFileExtension returns the lowercase file extension without the dot
func GetFileExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// IsImageFile checks if a file has an extension the processor can decode
func IsImageFile(filename string) bool {
	return imageExts[GetFileExtension(filename)]
}

// GenerateOutputFilename builds <outputDir>/<base><suffix>.<format>. URLs use
// their last path segment as base.
func GenerateOutputFilename(input, outputDir, suffix, format string) string {
	base := filepath.Base(input)
	if i := strings.LastIndex(input, "/"); i >= 0 {
		base = input[i+1:]
	}
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		name = "image"
	}

	if format == "" {
		format = GetFileExtension(base)
		if !IsImageFile(base) {
			format = "png"
		}
	}
	return filepath.Join(outputDir, fmt.Sprintf("%s%s.%s", name, suffix, strings.ToLower(format)))
}

// ListImageFiles recursively lists all image files under dir in lexical order
func ListImageFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsImageFile(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files
// ending with the specified extension. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// Expand resolves a file pattern into concrete paths. A pattern containing
// glob metacharacters goes through filepath.Glob; a directory is walked for
// files with the given extension; anything else is returned as-is.
func Expand(pattern string, extension string, isDir func(string) bool) ([]string, error) {
	if strings.ContainsAny(pattern, "*?[") {
		return filepath.Glob(pattern)
	}
	if isDir(pattern) {
		return FindFilesByExtension(pattern, extension)
	}
	return []string{pattern}, nil
}

package notebook

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover returns every .ipynb file under rootPath in lexical order
func Discover(rootPath string, excludeDirs []string) ([]string, error) {
	var paths []string

	// Default exclude patterns
	defaultExcludes := []string{".ipynb_checkpoints", "__pycache__"}
	allExcludes := append(defaultExcludes, excludeDirs...)

	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		baseName := filepath.Base(path)

		if !info.IsDir() {
			if strings.EqualFold(filepath.Ext(baseName), ".ipynb") {
				paths = append(paths, path)
			}
			return nil
		}

		// Skip hidden directories, but never the root itself
		if path != rootPath && strings.HasPrefix(baseName, ".") {
			return filepath.SkipDir
		}

		// Calculate relative path from root
		relPath, err := filepath.Rel(rootPath, path)
		if err != nil {
			relPath = baseName
		}
		// Normalize to use forward slashes for consistent matching
		relPath = filepath.ToSlash(relPath)

		// Skip excluded directories (check both basename and relative path)
		for _, exclude := range allExcludes {
			normalizedExclude := filepath.ToSlash(strings.TrimSpace(exclude))
			if normalizedExclude == "" {
				continue
			}
			if baseName == normalizedExclude || relPath == normalizedExclude {
				return filepath.SkipDir
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

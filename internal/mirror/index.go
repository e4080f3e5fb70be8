package mirror

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirectoryIndex builds the JSON listing snapshot for dir: an object
// mapping the directory path to the names of contained files passing the
// predicate. Advisory metadata for restore tooling, not required for the
// correctness of the files themselves.
func DirectoryIndex(dir string, pred Predicate) ([]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if pred.Match(filepath.Join(dir, entry.Name())) {
			names = append(names, entry.Name())
		}
	}

	return json.Marshal(map[string][]string{dir: names})
}

// GlobalIndex walks all watch roots and returns the newline-joined list of
// matching file paths.
func GlobalIndex(roots []string, pred Predicate) ([]byte, error) {
	var paths []string

	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// unreadable entries are left out of the index
				return nil
			}
			if d.Type().IsRegular() && pred.Match(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return []byte(strings.Join(paths, "\n") + "\n"), nil
}

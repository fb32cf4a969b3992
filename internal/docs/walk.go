// Package docs discovers page metadata files in a documentation build root
// and maps them into search documents.
package docs

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
)

// MarkerFilename is the name of the per-page metadata file in a build root.
const MarkerFilename = "index.json"

// Walk returns a lazy, depth-first sequence of every MarkerFilename below root.
//
// Directories are traversed with an explicit stack, entries in lexical order,
// files of a directory before its subdirectories. Each range over the
// returned sequence starts a fresh traversal. Symlinked directories are not
// followed. A directory that cannot be read ends the sequence with an error.
func Walk(root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		pending := []string{root}

		for len(pending) > 0 {
			dir := pending[len(pending)-1]
			pending = pending[:len(pending)-1]

			entries, err := os.ReadDir(dir)
			if err != nil {
				yield("", fmt.Errorf("failed to read directory %s: %w", dir, err))
				return
			}

			var subdirs []string
			for _, entry := range entries {
				path := filepath.Join(dir, entry.Name())
				if entry.IsDir() {
					subdirs = append(subdirs, path)
					continue
				}
				if entry.Name() != MarkerFilename {
					continue
				}
				if !yield(path, nil) {
					return
				}
			}

			// Push in reverse so the stack pops them in lexical order.
			for i := len(subdirs) - 1; i >= 0; i-- {
				pending = append(pending, subdirs[i])
			}
		}
	}
}

// Count runs one full traversal of root and returns the number of marker files.
func Count(root string) (int, error) {
	count := 0
	for _, err := range Walk(root) {
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

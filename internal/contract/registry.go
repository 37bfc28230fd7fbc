package contract

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Registry holds loaded contracts keyed by id.
type Registry map[string]Contract

// LoadRegistry walks a directory tree and loads every .yaml/.yml contract.
// Files are visited in lexical path order; a duplicate id overrides the
// earlier definition, last one wins. Any invalid file fails the whole
// load: a half-validated contract set is worse than none.
func LoadRegistry(dir string) (Registry, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk contracts dir: %w", err)
	}
	sort.Strings(paths)

	registry := make(Registry, len(paths))
	for _, path := range paths {
		c, err := LoadContract(path)
		if err != nil {
			return nil, err
		}
		registry[c.ID] = c
	}
	return registry, nil
}

// IDs returns the registered contract ids in sorted order.
func (r Registry) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Package pack loads prompt packs: JSONL files with one test item per line.
package pack

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Item is one prompt-pack entry. The harness core consumes only ID;
// Prompt, Behavior and Must pass through to an external pipeline when a
// run is not simulated.
type Item struct {
	ID       string         `json:"id"`
	Prompt   string         `json:"prompt"`
	Behavior string         `json:"behavior"` // e.g. "clarify", "refuse"
	Must     map[string]any `json:"must"`
}

// Load reads items from JSONL. Blank lines are skipped. Duplicate ids are
// rejected: id must be unique within a pack so rows stay unique per
// (pack, mode).
func Load(r io.Reader, name string) ([]Item, error) {
	var items []Item
	seen := make(map[string]bool)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 || isBlank(raw) {
			continue
		}
		var item Item
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("pack %s line %d: %w", name, line, err)
		}
		if item.ID == "" {
			return nil, fmt.Errorf("pack %s line %d: missing id", name, line)
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("pack %s line %d: duplicate id %q", name, line, item.ID)
		}
		seen[item.ID] = true
		items = append(items, item)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("pack %s: %w", name, err)
	}
	return items, nil
}

// LoadFile loads a pack from disk. The pack name recorded in result rows
// is the file's base name, matching how run tables are diffed.
func LoadFile(path string) (name string, items []Item, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open pack: %w", err)
	}
	defer f.Close()

	name = filepath.Base(path)
	items, err = Load(f, name)
	return name, items, err
}

func isBlank(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' && c != '\r' {
			return false
		}
	}
	return true
}

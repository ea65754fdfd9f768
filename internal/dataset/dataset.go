package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// QAItem is one evaluation unit. Items are immutable once loaded.
type QAItem struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Aliases  []string `json:"aliases,omitempty"`
	Category string   `json:"category,omitempty"`
}

// Load reads a line-delimited JSON dataset from path.
func Load(path string) ([]QAItem, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("dataset: empty path")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %q: %w", path, err)
	}
	defer f.Close()

	items, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("dataset: %q: %w", path, err)
	}
	return items, nil
}

// Decode reads line-delimited JSON items from r and validates them.
func Decode(r io.Reader) ([]QAItem, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var out []QAItem
	seen := make(map[string]struct{})

	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var item QAItem
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" {
			return nil, fmt.Errorf("line %d: missing id", lineNum)
		}
		if _, ok := seen[item.ID]; ok {
			return nil, fmt.Errorf("line %d: duplicate id %q", lineNum, item.ID)
		}
		seen[item.ID] = struct{}{}

		if strings.TrimSpace(item.Question) == "" {
			return nil, fmt.Errorf("line %d (%s): missing question", lineNum, item.ID)
		}
		if strings.TrimSpace(item.Answer) == "" {
			return nil, fmt.Errorf("line %d (%s): missing answer", lineNum, item.ID)
		}

		out = append(out, item)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no items")
	}
	return out, nil
}

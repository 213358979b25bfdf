// Package catalog loads the image tag catalog that grids are built from.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is one image in the catalog.
type Entry struct {
	Filename string
	Category string
	Tags     []string
}

// HasTag reports whether tag is one of the entry's tags or its category.
func (e Entry) HasTag(tag string) bool {
	if tag == "" {
		return false
	}
	if e.Category == tag {
		return true
	}
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AllTags returns the entry's tags followed by its category, without duplicates.
func (e Entry) AllTags() []string {
	seen := make(map[string]struct{}, len(e.Tags)+1)
	out := make([]string, 0, len(e.Tags)+1)
	for _, t := range append(append([]string(nil), e.Tags...), e.Category) {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Catalog is the ordered list of entries.
type Catalog struct {
	Entries []Entry
}

// Tags lists every distinct tag and category in the catalog.
func (c Catalog) Tags() []string {
	set := map[string]struct{}{}
	for _, e := range c.Entries {
		for _, t := range e.AllTags() {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether tag appears anywhere in the catalog.
func (c Catalog) Contains(tag string) bool {
	for _, e := range c.Entries {
		if e.HasTag(tag) {
			return true
		}
	}
	return false
}

var sampleRows = [][]string{
	{"filename", "tags"},
	{"images/animal1.jpeg", "animal|pet|cat"},
	{"images/animal2.jpeg", "animal|pet|dog"},
	{"images/vehicle1.jpeg", "vehicle|car"},
}

// Load reads a catalog CSV. A missing file is replaced by a small sample
// catalog written to path.
func Load(path string) (Catalog, error) {
	if path == "" {
		return Catalog{}, fmt.Errorf("catalog path is empty")
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := WriteSample(path); err != nil {
			return Catalog{}, err
		}
		file, err = os.Open(path)
	}
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only catalog.
			_ = cerr
		}
	}()
	cat, err := Parse(file)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes catalog CSV with a header row. The filename and tags columns
// are required; category is optional. Tags are pipe-separated.
func Parse(r io.Reader) (Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Catalog{}, fmt.Errorf("catalog is empty")
		}
		return Catalog{}, err
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	fileCol, ok := cols["filename"]
	if !ok {
		return Catalog{}, fmt.Errorf("'filename' column not found")
	}
	tagsCol, ok := cols["tags"]
	if !ok {
		return Catalog{}, fmt.Errorf("'tags' column not found")
	}
	catCol, hasCategory := cols["category"]

	var cat Catalog
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Catalog{}, err
		}
		entry := Entry{
			Filename: field(row, fileCol),
			Tags:     splitTags(field(row, tagsCol)),
		}
		if hasCategory {
			entry.Category = field(row, catCol)
		}
		if entry.Filename == "" {
			continue
		}
		cat.Entries = append(cat.Entries, entry)
	}
	if len(cat.Entries) == 0 {
		return Catalog{}, fmt.Errorf("no valid data found in catalog")
	}
	return cat, nil
}

// WriteSample writes the sample catalog to path.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create catalog dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create catalog: %w", err)
	}
	w := csv.NewWriter(file)
	if err := w.WriteAll(sampleRows); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return file.Close()
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func splitTags(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

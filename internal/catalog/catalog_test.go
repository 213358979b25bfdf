package catalog

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	input := "filename,category,tags\n" +
		"images/cat.jpeg,animal,pet|cat\n" +
		"images/car.jpeg,vehicle, car | red \n" +
		",animal,dog\n"
	cat, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []Entry{
		{Filename: "images/cat.jpeg", Category: "animal", Tags: []string{"pet", "cat"}},
		{Filename: "images/car.jpeg", Category: "vehicle", Tags: []string{"car", "red"}},
	}
	if diff := cmp.Diff(want, cat.Entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"animal", "car", "cat", "pet", "red", "vehicle"}, cat.Tags()); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	if !cat.Contains("animal") || cat.Contains("plant") {
		t.Fatalf("unexpected Contains result")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: "catalog is empty"},
		{name: "no filename", input: "name,tags\na,b\n", want: "'filename' column not found"},
		{name: "no tags", input: "filename,category\na,b\n", want: "'tags' column not found"},
		{name: "no rows", input: "filename,tags\n", want: "no valid data found in catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEntryAllTags(t *testing.T) {
	e := Entry{Filename: "x", Category: "animal", Tags: []string{"animal", "cat"}}
	if diff := cmp.Diff([]string{"animal", "cat"}, e.AllTags()); diff != "" {
		t.Fatalf("all tags mismatch (-want +got):\n%s", diff)
	}
	if !e.HasTag("cat") || !e.HasTag("animal") || e.HasTag("") {
		t.Fatalf("unexpected HasTag result")
	}
}

func TestLoadWritesSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "image_tags.csv")
	cat, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cat.Entries) != 3 {
		t.Fatalf("expected 3 sample entries, got %d", len(cat.Entries))
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if diff := cmp.Diff(cat, again); diff != "" {
		t.Fatalf("reload mismatch (-want +got):\n%s", diff)
	}
}

package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Session", "Trials", "Accuracy"}
	rows := [][]string{
		{"a1", "12", "75.00%"},
		{"session-b", "3", "100.00%"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Session   Trials Accuracy" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "a1            12   75.00%" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "session-b      3  100.00%" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Tag", "N"}, [][]string{{"猫", "1"}, {"dog", "2"}}, nil)
	if lines[1] != "猫  1" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "dog 2" {
		t.Fatalf("unexpected row: %q", lines[2])
	}
}

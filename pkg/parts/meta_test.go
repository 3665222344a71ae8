package parts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMetaOptionalTitle(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		valid bool
		value string
	}{
		{
			name:  "present",
			data:  `{"title": "Alpha"}`,
			valid: true,
			value: "Alpha",
		},
		{
			name:  "empty string",
			data:  `{"title": ""}`,
			valid: true,
			value: "",
		},
		{
			name:  "null",
			data:  `{"title": null}`,
			valid: false,
		},
		{
			name:  "absent",
			data:  `{}`,
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "part")
			if err := os.WriteFile(MetaPath(path), []byte(tt.data), 0o644); err != nil {
				t.Fatalf("unexpected write error: %v", err)
			}
			meta, err := NewTree(dir).Meta(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if meta.Title.Valid != tt.valid {
				t.Fatalf("unexpected title validity: got %v, want %v", meta.Title.Valid, tt.valid)
			}
			if meta.Title.Valid && meta.Title.Value != tt.value {
				t.Fatalf("unexpected title: got %q, want %q", meta.Title.Value, tt.value)
			}
		})
	}
}

func TestWriteMetaRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Alpha")
	meta := &Meta{
		Title:     Some("Alpha"),
		URL:       "https://example.org/alpha/",
		Copyright: "Copyright Example",
		License:   "CC BY",
		Parts:     []string{"Alpha.parts/Intro"},
	}
	if err := WriteMeta(path, meta); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	got, err := NewTree(dir).Meta(path)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if !got.Title.Valid || got.Title.Value != "Alpha" {
		t.Fatalf("unexpected title: got %+v", got.Title)
	}
	if got.URL != meta.URL || got.Copyright != meta.Copyright || got.License != meta.License {
		t.Fatalf("unexpected fields: got %+v", got)
	}
	if len(got.Parts) != 1 || got.Parts[0] != "Alpha.parts/Intro" {
		t.Fatalf("unexpected parts: got %v", got.Parts)
	}
	if got.Content != "" {
		t.Fatalf("unexpected content: got %q", got.Content)
	}
}

func TestWriteMetaOmitsAbsentFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Section")
	meta := &Meta{
		Title:   Some("Section"),
		URL:     "https://example.org/s",
		Content: "Section.md",
	}
	if err := WriteMeta(path, meta); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	data, err := os.ReadFile(MetaPath(path))
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	for _, key := range []string{"copyright", "license", "parts"} {
		if strings.Contains(string(data), key) {
			t.Fatalf("descriptor contains absent field %q: %s", key, data)
		}
	}

	if err := WriteMeta(path, &Meta{Content: "Section.md"}); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	data, err = os.ReadFile(MetaPath(path))
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if strings.Contains(string(data), "title") {
		t.Fatalf("descriptor contains absent title: %s", data)
	}
}

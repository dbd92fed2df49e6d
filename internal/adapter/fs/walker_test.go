package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files []string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("text"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscoverIncludeExclude(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{
		"coppa.txt",
		"gdpr.txt",
		"notes.md",
		"drafts/aadc.txt",
	})

	w := NewWalker([]string{"**/*.txt"}, []string{"drafts/**"})
	paths, err := w.Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(paths) != 2 {
		t.Fatalf("got %d paths, want 2: %v", len(paths), paths)
	}
	if filepath.Base(paths[0]) != "coppa.txt" || filepath.Base(paths[1]) != "gdpr.txt" {
		t.Errorf("unexpected discovery result: %v", paths)
	}
}

func TestDiscoverSortedOutput(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{"z.txt", "a.txt", "m.txt"})

	w := NewWalker([]string{"*.txt"}, nil)
	paths, err := w.Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	for i := 1; i < len(paths); i++ {
		if paths[i-1] > paths[i] {
			t.Errorf("paths not sorted: %v", paths)
		}
	}
}

func TestDiscoverMissingRoot(t *testing.T) {
	w := NewWalker(nil, nil)
	paths, err := w.Discover(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("missing root should not error, got %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("missing root returned paths: %v", paths)
	}
}

package wordlist

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWordsTrimsAndKeepsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parole.txt")
	if err := os.WriteFile(path, []byte("cane  \n gatto\n\ncane\ncasa\t\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	words, err := LoadWords(path, nil)
	if err != nil {
		t.Fatalf("LoadWords: %v", err)
	}
	expected := []string{"cane", "gatto", "cane", "casa"}
	if len(words) != len(expected) {
		t.Fatalf("expected %d words, got %d: %v", len(expected), len(words), words)
	}
	for i, w := range expected {
		if words[i] != w {
			t.Fatalf("expected %q at %d, got %q", w, i, words[i])
		}
	}
}

func TestLoadWordsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("\n  \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWords(path, nil); err == nil {
		t.Fatalf("expected error for empty list")
	}
}

func TestLoadWordsAppliesFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte("alpha\nBeta\ngamma\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	filter, _ := FilterFor("ascii")
	words, err := LoadWords(path, filter)
	if err != nil {
		t.Fatalf("LoadWords: %v", err)
	}
	if len(words) != 2 || words[0] != "alpha" || words[1] != "gamma" {
		t.Fatalf("unexpected words: %v", words)
	}
}

func TestLoadWordsMissing(t *testing.T) {
	if _, err := LoadWords(filepath.Join(t.TempDir(), "nope.txt"), nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

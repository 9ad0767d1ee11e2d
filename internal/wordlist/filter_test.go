package wordlist

import "testing"

func TestFilterASCII(t *testing.T) {
	filter, err := FilterFor("ascii")
	if err != nil {
		t.Fatalf("FilterFor: %v", err)
	}
	if !filter("hello") {
		t.Fatalf("expected hello to pass ascii filter")
	}
	for _, word := range []string{"résumé", "naïve", "don’t", "co-op"} {
		if filter(word) {
			t.Fatalf("expected %q to be rejected", word)
		}
	}
}

func TestFilterShort(t *testing.T) {
	filter, err := FilterFor("short")
	if err != nil {
		t.Fatalf("FilterFor: %v", err)
	}
	if !filter("città") {
		t.Fatalf("expected città to pass short filter")
	}
	if filter("precipitevolissimevolmente") {
		t.Fatalf("expected long word to be rejected")
	}
}

func TestFilterForAllAndUnknown(t *testing.T) {
	filter, err := FilterFor("all")
	if err != nil || filter != nil {
		t.Fatalf("expected nil filter for all, got %v %v", filter, err)
	}
	if _, err := FilterFor("nouns"); err == nil {
		t.Fatalf("expected error for unknown filter")
	}
}

// Package wordlist provides word list filtering helpers.
package wordlist

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// FilterFor returns the filter registered under name.
// "" and "all" keep everything, "ascii" keeps lowercase ASCII words,
// "short" keeps words of at most 8 letters.
func FilterFor(name string) (FilterFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "all":
		return nil, nil
	case "ascii":
		return filterASCII, nil
	case "short":
		return filterShort, nil
	default:
		return nil, fmt.Errorf("unknown word filter %q (use all, ascii or short)", name)
	}
}

func filterASCII(word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i < len(word); i++ {
		ch := word[i]
		if ch < 'a' || ch > 'z' {
			return false
		}
	}
	return true
}

func filterShort(word string) bool {
	if utf8.RuneCountInString(word) > 8 {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return word != ""
}

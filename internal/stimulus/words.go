package stimulus

import (
	"github.com/verte-zerg/vismem/internal/generator"
	"github.com/verte-zerg/vismem/internal/model"
	"github.com/verte-zerg/vismem/internal/wordlist"
)

// Words draws from the lines of a word list.
type Words struct {
	pool
	path string
	max  int
}

// LoadWords reads the word list at path and builds a source bounded by max.
func LoadWords(path string, max int, filter wordlist.FilterFunc, gen *generator.Generator) (*Words, error) {
	words, err := wordlist.LoadWords(path, filter)
	if err != nil {
		return nil, &model.ResourceLoadError{Resource: path, Err: err}
	}
	w := NewWords(words, max, gen)
	w.path = path
	return w, nil
}

// NewWords builds a source over an in-memory list.
func NewWords(words []string, max int, gen *generator.Generator) *Words {
	if max <= 0 {
		max = DefaultMax
	}
	entries := make([]model.StimulusID, len(words))
	for i, w := range words {
		entries[i] = model.StimulusID(w)
	}
	return &Words{pool: newPool(entries, gen), max: max}
}

// Modality implements Source.
func (w *Words) Modality() model.Modality { return model.Words }

// Max implements Source.
func (w *Words) Max() int { return w.max }

// Path returns the word list path, empty for in-memory lists.
func (w *Words) Path() string { return w.path }

package stimulus

import (
	"github.com/verte-zerg/vismem/internal/generator"
	"github.com/verte-zerg/vismem/internal/model"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Letters is the fixed uppercase alphabet.
type Letters struct {
	pool
}

// NewLetters returns the letter source.
func NewLetters(gen *generator.Generator) *Letters {
	entries := make([]model.StimulusID, 0, len(alphabet))
	for _, r := range alphabet {
		entries = append(entries, model.StimulusID(string(r)))
	}
	return &Letters{pool: newPool(entries, gen)}
}

// Modality implements Source.
func (l *Letters) Modality() model.Modality { return model.Letters }

// Max implements Source.
func (l *Letters) Max() int { return len(alphabet) }

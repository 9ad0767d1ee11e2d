package tui

import (
	"fmt"
	"image"
	"image/color"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/vismem/internal/model"
	"github.com/verte-zerg/vismem/internal/stimulus"
)

const upperHalfBlock = "▀"

// Thumbnailer is implemented by sources that can decode a stimulus into an image.
type Thumbnailer interface {
	Thumbnail(id model.StimulusID) (image.Image, error)
}

// halfBlocks renders img as cols x cols/2 cells; each cell carries two
// vertically stacked pixels as foreground and background colors.
func halfBlocks(img image.Image, cols int) [][]string {
	rows := cols / 2
	if cols <= 0 || rows <= 0 {
		return nil
	}
	scaled := stimulus.Scale(img, cols, rows*2)
	lines := make([][]string, rows)
	for r := 0; r < rows; r++ {
		line := make([]string, cols)
		for c := 0; c < cols; c++ {
			top := scaled.RGBAAt(c, 2*r)
			bottom := scaled.RGBAAt(c, 2*r+1)
			line[c] = lipgloss.NewStyle().
				Foreground(hexColor(top)).
				Background(hexColor(bottom)).
				Render(upperHalfBlock)
		}
		lines[r] = line
	}
	return lines
}

func hexColor(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

// placeholderBlock stands in for an image that failed to decode.
func placeholderBlock(cols int) [][]string {
	rows := cols / 2
	lines := make([][]string, rows)
	for r := range lines {
		line := make([]string, cols)
		for c := range line {
			line[c] = mutedStyle.Render("░")
		}
		lines[r] = line
	}
	return lines
}

// thumbnailCache keeps rendered thumbnails keyed by stimulus.
type thumbnailCache struct {
	source Thumbnailer
	cols   int
	cache  map[model.StimulusID][][]string
	errs   map[model.StimulusID]error
}

func newThumbnailCache(source Thumbnailer, cols int) *thumbnailCache {
	return &thumbnailCache{
		source: source,
		cols:   cols,
		cache:  map[model.StimulusID][][]string{},
		errs:   map[model.StimulusID]error{},
	}
}

func (t *thumbnailCache) get(id model.StimulusID) [][]string {
	if lines, ok := t.cache[id]; ok {
		return lines
	}
	img, err := t.source.Thumbnail(id)
	var lines [][]string
	if err != nil {
		t.errs[id] = err
		lines = placeholderBlock(t.cols)
	} else {
		lines = halfBlocks(img, t.cols)
	}
	t.cache[id] = lines
	return lines
}

// failures returns the number of thumbnails that could not be decoded.
func (t *thumbnailCache) failures() int {
	return len(t.errs)
}

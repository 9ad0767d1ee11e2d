package stimulus

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/verte-zerg/vismem/internal/generator"
	"github.com/verte-zerg/vismem/internal/model"
)

var imageExts = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
}

// ThumbnailLoader decodes an image file into a fixed-size thumbnail.
type ThumbnailLoader interface {
	Load(path string) (image.Image, error)
}

// Images draws filenames from an image directory.
type Images struct {
	pool
	dir    string
	max    int
	loader ThumbnailLoader

	mu    sync.Mutex
	cache map[model.StimulusID]image.Image
}

// LoadImages lists the image files in dir. A nil loader uses a 100x100 Resizer.
func LoadImages(dir string, max int, loader ThumbnailLoader, gen *generator.Generator) (*Images, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &model.ResourceLoadError{Resource: dir, Err: err}
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if _, ok := imageExts[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return nil, &model.ResourceLoadError{Resource: dir, Err: fmt.Errorf("no image files found")}
	}
	sort.Strings(names)

	if max <= 0 {
		max = DefaultMax
	}
	if loader == nil {
		loader = NewResizer(DefaultThumbnailSize)
	}
	ids := make([]model.StimulusID, len(names))
	for i, name := range names {
		ids[i] = model.StimulusID(name)
	}
	return &Images{
		pool:   newPool(ids, gen),
		dir:    dir,
		max:    max,
		loader: loader,
		cache:  map[model.StimulusID]image.Image{},
	}, nil
}

// Modality implements Source.
func (im *Images) Modality() model.Modality { return model.Images }

// Max implements Source.
func (im *Images) Max() int { return im.max }

// Dir returns the image directory.
func (im *Images) Dir() string { return im.dir }

// Thumbnail returns the decoded, resized image for id. Results are cached.
func (im *Images) Thumbnail(id model.StimulusID) (image.Image, error) {
	im.mu.Lock()
	if img, ok := im.cache[id]; ok {
		im.mu.Unlock()
		return img, nil
	}
	im.mu.Unlock()

	path := filepath.Join(im.dir, filepath.Base(string(id)))
	img, err := im.loader.Load(path)
	if err != nil {
		return nil, &model.ResourceLoadError{Resource: path, Err: err}
	}
	im.mu.Lock()
	im.cache[id] = img
	im.mu.Unlock()
	return img, nil
}

package graphics

import (
	"image"
	"log/slog"
	"strings"
	"sync"

	"github.com/zurustar/nsbi/pkg/fileutil"
)

// ImageCache decodes images through a resource provider once per file.
type ImageCache struct {
	fsys   fileutil.FileSystem
	images map[string]image.Image
	mu     sync.Mutex
	log    *slog.Logger
}

// NewImageCache creates a cache reading from fsys.
func NewImageCache(fsys fileutil.FileSystem, log *slog.Logger) *ImageCache {
	return &ImageCache{fsys: fsys, images: make(map[string]image.Image), log: log}
}

func cacheKey(name string) string {
	return strings.ToLower(fileutil.CleanPath(name))
}

// Load returns the decoded image for name.
func (c *ImageCache) Load(name string) (image.Image, error) {
	key := cacheKey(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if img, ok := c.images[key]; ok {
		return img, nil
	}
	data, err := c.fsys.ReadFile(name)
	if err != nil {
		c.log.Warn("Image not found", "file", name, "error", err)
		return nil, err
	}
	img, err := DecodeImage(name, data)
	if err != nil {
		c.log.Warn("Image decode failed", "file", name, "error", err)
		return nil, err
	}
	c.images[key] = img
	b := img.Bounds()
	c.log.Debug("Image loaded", "file", name, "width", b.Dx(), "height", b.Dy())
	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

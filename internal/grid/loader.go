package grid

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// Cache provides thread-safe caching of decoded grids to avoid redundant disk
// reads and conversions.
//
// Grids are keyed by the exact path string passed to Load. Once a grid is
// loaded, subsequent Load calls for the same path return the cached grid
// without disk I/O. Callers must not mutate a cached grid.
//
// # Example Usage
//
//	cache := grid.NewCache()
//	g, err := cache.Load("/path/to/field.tiff")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cache.Evict("/path/to/field.tiff") // Optional: free memory
type Cache struct {
	mu    sync.RWMutex
	grids map[string]*Grid
}

// NewCache creates an empty grid cache, ready for concurrent use.
func NewCache() *Cache {
	return &Cache{
		grids: make(map[string]*Grid),
	}
}

// Load retrieves a grid from the cache or decodes it from disk.
//
// Supported formats are those understood by disintegration/imaging: PNG,
// JPEG, GIF, TIFF and BMP. See FromImage for the pixel conversion rules.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a decodable image
func (c *Cache) Load(path string) (*Grid, error) {
	c.mu.RLock()
	if g, ok := c.grids[path]; ok {
		c.mu.RUnlock()
		return g, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	g := FromImage(img)

	c.mu.Lock()
	c.grids[path] = g
	c.mu.Unlock()

	return g, nil
}

// Clear removes all grids from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.grids = make(map[string]*Grid)
	c.mu.Unlock()
}

// Evict removes a single grid from the cache. Unknown paths are ignored.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	delete(c.grids, path)
	c.mu.Unlock()
}

// FromImage converts a decoded image into an intensity grid.
//
// 16-bit grayscale images keep their full precision (Y / 65535). Every other
// color model is converted to ITU-R BT.601 luminance in [0, 1]. Fully
// transparent pixels become NaN so that they are treated as invalid input.
func FromImage(img image.Image) *Grid {
	b := img.Bounds()
	g := New(b.Dx(), b.Dy())

	if gray16, ok := img.(*image.Gray16); ok {
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				v := gray16.Gray16At(x+b.Min.X, y+b.Min.Y).Y
				g.Set(x, y, float64(v)/0xffff)
			}
		}
		return g
	}

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			r, gr, bl, a := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			if a == 0 {
				g.Set(x, y, math.NaN())
				continue
			}
			// RGBA() is alpha-premultiplied; divide it back out.
			lum := float64(r)
			if r != gr || gr != bl {
				lum = 0.299*float64(r) + 0.587*float64(gr) + 0.114*float64(bl)
			}
			g.Set(x, y, lum/float64(a))
		}
	}
	return g
}

// Info contains metadata about a loaded grid file.
type Info struct {
	// Width is the grid width in pixels.
	Width int `json:"width"`

	// Height is the grid height in pixels.
	Height int `json:"height"`

	// Format is derived from the file extension: "png", "jpeg", "gif",
	// "tiff", "bmp" or "unknown".
	Format string `json:"format"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// Stats summarises the finite pixel values.
	Stats Stats `json:"stats"`
}

// LoadInfo loads a grid through the cache and returns its metadata.
func LoadInfo(cache *Cache, path string) (*Info, error) {
	g, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	case ".tif", ".tiff":
		format = "tiff"
	case ".bmp":
		format = "bmp"
	}

	return &Info{
		Width:         g.Width,
		Height:        g.Height,
		Format:        format,
		FileSizeBytes: stat.Size(),
		Stats:         g.Stats(),
	}, nil
}

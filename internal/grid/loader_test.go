package grid

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"sync"
	"testing"
)

// createTestImage writes img to a temporary PNG file and returns its path.
// The caller is responsible for removing the file.
func createTestImage(t *testing.T, img image.Image) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-grid-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if err := png.Encode(tmpFile, img); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to encode image: %v", err)
	}

	return tmpFile.Name()
}

func TestFromImage_Gray16(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 4, 3))
	img.SetGray16(1, 2, color.Gray16{Y: 0xffff})
	img.SetGray16(2, 0, color.Gray16{Y: 0x8000})

	g := FromImage(img)
	if g.Width != 4 || g.Height != 3 {
		t.Fatalf("dimensions: got %dx%d, want 4x3", g.Width, g.Height)
	}
	if got := g.At(1, 2); got != 1 {
		t.Errorf("At(1,2): got %v, want 1", got)
	}
	if got, want := g.At(2, 0), float64(0x8000)/0xffff; got != want {
		t.Errorf("At(2,0): got %v, want %v", got, want)
	}
}

func TestFromImage_TransparentIsInvalid(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{255, 255, 255, 255})
	img.Set(1, 0, color.NRGBA{255, 255, 255, 0})
	img.Set(0, 1, color.NRGBA{0, 0, 0, 255})
	img.Set(1, 1, color.NRGBA{255, 255, 255, 128})

	g := FromImage(img)
	if got := g.At(0, 0); math.Abs(got-1) > 1e-9 {
		t.Errorf("white: got %v, want 1", got)
	}
	if !math.IsNaN(g.At(1, 0)) {
		t.Errorf("transparent pixel: got %v, want NaN", g.At(1, 0))
	}
	if got := g.At(0, 1); got != 0 {
		t.Errorf("black: got %v, want 0", got)
	}
	// Partial alpha is un-premultiplied back to full white.
	if got := g.At(1, 1); math.Abs(got-1) > 0.01 {
		t.Errorf("half-transparent white: got %v, want ~1", got)
	}
}

func TestCache_Load(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 8))
	img.SetGray(3, 4, color.Gray{Y: 255})
	path := createTestImage(t, img)
	defer os.Remove(path)

	cache := NewCache()
	g, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if g.Width != 10 || g.Height != 8 {
		t.Errorf("dimensions: got %dx%d, want 10x8", g.Width, g.Height)
	}
	if got := g.At(3, 4); math.Abs(got-1) > 1e-9 {
		t.Errorf("At(3,4): got %v, want 1", got)
	}

	again, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if again != g {
		t.Error("second Load should return the cached grid")
	}
}

func TestCache_LoadMissing(t *testing.T) {
	cache := NewCache()
	if _, err := cache.Load("/nonexistent/field.png"); err == nil {
		t.Error("Load should fail for a missing file")
	}
}

func TestCache_EvictAndClear(t *testing.T) {
	path := createTestImage(t, image.NewGray(image.Rect(0, 0, 2, 2)))
	defer os.Remove(path)

	cache := NewCache()
	first, _ := cache.Load(path)

	cache.Evict(path)
	second, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load after Evict failed: %v", err)
	}
	if first == second {
		t.Error("Evict should force a reload")
	}

	cache.Clear()
	cache.mu.RLock()
	n := len(cache.grids)
	cache.mu.RUnlock()
	if n != 0 {
		t.Errorf("cache size after Clear: got %d, want 0", n)
	}
}

func TestCache_Concurrent(t *testing.T) {
	path := createTestImage(t, image.NewGray(image.Rect(0, 0, 16, 16)))
	defer os.Remove(path)

	cache := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				t.Errorf("concurrent Load failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestLoadInfo(t *testing.T) {
	path := createTestImage(t, image.NewGray(image.Rect(0, 0, 12, 7)))
	defer os.Remove(path)

	info, err := LoadInfo(NewCache(), path)
	if err != nil {
		t.Fatalf("LoadInfo failed: %v", err)
	}
	if info.Width != 12 || info.Height != 7 {
		t.Errorf("dimensions: got %dx%d, want 12x7", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.FileSizeBytes <= 0 {
		t.Errorf("FileSizeBytes: got %d, want > 0", info.FileSizeBytes)
	}
	if info.Stats.Valid != 84 {
		t.Errorf("Stats.Valid: got %d, want 84", info.Stats.Valid)
	}
}

package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// writeTestImage fills an image with c and writes it as PNG into a temp dir.
func writeTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "scan.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	path := writeTestImage(t, 100, 80, color.RGBA{255, 0, 0, 255})

	img1, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b := img1.Bounds(); b.Dx() != 100 || b.Dy() != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", b.Dx(), b.Dy())
	}

	img2, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}

func TestImageCache_LoadErrors(t *testing.T) {
	cache := NewImageCache()
	if _, err := cache.Load("/nonexistent/path/to/scan.png"); err == nil {
		t.Error("Load should fail for non-existent file")
	}

	path := filepath.Join(t.TempDir(), "invalid.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Load(path); err == nil {
		t.Error("Load should fail for invalid image data")
	}
	if cache.Len() != 0 {
		t.Errorf("failed loads were cached: %d", cache.Len())
	}
}

func TestImageCache_EvictAndClear(t *testing.T) {
	cache := NewImageCache()
	path := writeTestImage(t, 20, 20, color.White)
	if _, err := cache.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cache.Evict("/nonexistent/path")
	if cache.Len() != 1 {
		t.Error("Evict of an unknown path removed an entry")
	}
	cache.Evict(path)
	if cache.Len() != 0 {
		t.Error("Evict did not remove image from cache")
	}

	if _, err := cache.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Clear did not empty cache: %d images remain", cache.Len())
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	path := writeTestImage(t, 50, 50, color.RGBA{128, 128, 128, 255})

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestLoadImageInfo_Formats(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 30, 20))
	rgba := image.NewRGBA(image.Rect(0, 0, 30, 20))

	tests := []struct {
		name      string
		file      string
		encode    func(f *os.File) error
		format    string
		grayscale bool
	}{
		{"png gray", "scan.png", func(f *os.File) error { return png.Encode(f, gray) }, "png", true},
		{"png color", "scan2.png", func(f *os.File) error { return png.Encode(f, rgba) }, "png", false},
		{"bmp", "scan.bmp", func(f *os.File) error { return bmp.Encode(f, rgba) }, "bmp", false},
		{"tiff", "scan.tif", func(f *os.File) error { return tiff.Encode(f, gray, nil) }, "tiff", true},
	}

	cache := NewImageCache()
	dir := t.TempDir()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			f, err := os.Create(path)
			if err != nil {
				t.Fatalf("failed to create file: %v", err)
			}
			if err := tt.encode(f); err != nil {
				t.Fatalf("failed to encode: %v", err)
			}
			f.Close()

			info, err := LoadImageInfo(cache, path)
			if err != nil {
				t.Fatalf("LoadImageInfo failed: %v", err)
			}
			if info.Width != 30 || info.Height != 20 {
				t.Errorf("dimensions: got %dx%d, want 30x20", info.Width, info.Height)
			}
			if info.Format != tt.format {
				t.Errorf("Format: got %s, want %s", info.Format, tt.format)
			}
			if info.Grayscale != tt.grayscale {
				t.Errorf("Grayscale: got %v, want %v", info.Grayscale, tt.grayscale)
			}
			if info.FileSizeBytes <= 0 {
				t.Error("FileSizeBytes should be positive")
			}
		})
	}
}

func TestLoadImageInfo_NonExistent(t *testing.T) {
	if _, err := LoadImageInfo(NewImageCache(), "/nonexistent/scan.png"); err == nil {
		t.Error("LoadImageInfo should fail for non-existent file")
	}
}

func TestIsSupported(t *testing.T) {
	tests := map[string]bool{
		"a.png":      true,
		"b.JPG":      true,
		"c.tiff":     true,
		"d.bmp":      true,
		"e.pdf":      false,
		"results":    false,
		"dir/f.jpeg": true,
	}
	for path, want := range tests {
		if got := IsSupported(path); got != want {
			t.Errorf("IsSupported(%q) = %v, want %v", path, got, want)
		}
	}
}

package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"photokeep/internal/catalog"
	"photokeep/internal/mediatypes"
)

func TestThumbnailPath(t *testing.T) {
	g := NewThumbnailGenerator(filepath.Join(t.TempDir(), "thumbs"))

	got := g.Path(42, catalog.ThumbnailMedium)
	want := filepath.Join(g.rootDir, "42", "medium.jpg")
	if got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestMissingSizesFreshAsset(t *testing.T) {
	g := NewThumbnailGenerator(t.TempDir())

	missing := g.MissingSizes(1)
	if len(missing) != len(catalog.ThumbnailSizes) {
		t.Errorf("Expected all %d sizes missing, got %v", len(catalog.ThumbnailSizes), missing)
	}
}

func TestGenerateImageThumbnails(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source.png")
	writeTestPNG(t, source, 1000, 600)

	g := NewThumbnailGenerator(filepath.Join(root, "thumbs"))
	sizes := []catalog.ThumbnailSize{catalog.ThumbnailSmall, catalog.ThumbnailMedium}

	thumbs, err := g.Generate(context.Background(), 7, source, mediatypes.MediaTypeImage, sizes)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(thumbs) != 2 {
		t.Fatalf("Expected 2 thumbnails, got %d", len(thumbs))
	}

	bySize := make(map[catalog.ThumbnailSize]catalog.Thumbnail)
	for _, th := range thumbs {
		bySize[th.Size] = th
	}

	small := bySize[catalog.ThumbnailSmall]
	if small.Width != 240 || small.Height != 144 {
		t.Errorf("Small = %dx%d, want 240x144 (aspect preserved)", small.Width, small.Height)
	}
	if small.Format != "jpeg" {
		t.Errorf("Format = %q, want jpeg", small.Format)
	}
	if small.ByteSize == 0 {
		t.Error("ByteSize not recorded")
	}

	for _, th := range thumbs {
		info, err := os.Stat(th.FilePath)
		if err != nil {
			t.Errorf("Thumbnail file %s missing: %v", th.FilePath, err)
			continue
		}
		if info.Size() != th.ByteSize {
			t.Errorf("File size %d != recorded ByteSize %d", info.Size(), th.ByteSize)
		}
	}

	// Only the large size remains missing.
	missing := g.MissingSizes(7)
	if len(missing) != 1 || missing[0] != catalog.ThumbnailLarge {
		t.Errorf("MissingSizes = %v, want [large]", missing)
	}
}

func TestGenerateSmallSourceNotUpscaled(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "tiny.png")
	writeTestPNG(t, source, 100, 60)

	g := NewThumbnailGenerator(filepath.Join(root, "thumbs"))
	thumbs, err := g.Generate(context.Background(), 1, source, mediatypes.MediaTypeImage,
		[]catalog.ThumbnailSize{catalog.ThumbnailLarge})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(thumbs) != 1 {
		t.Fatalf("Expected 1 thumbnail, got %d", len(thumbs))
	}
	if thumbs[0].Width > 100 || thumbs[0].Height > 60 {
		t.Errorf("Thumbnail %dx%d was upscaled beyond source 100x60", thumbs[0].Width, thumbs[0].Height)
	}
}

func TestGenerateUndecodableSource(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "broken.jpg")
	if err := os.WriteFile(source, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := NewThumbnailGenerator(filepath.Join(root, "thumbs"))
	_, err := g.Generate(context.Background(), 1, source, mediatypes.MediaTypeImage,
		[]catalog.ThumbnailSize{catalog.ThumbnailSmall})
	if err == nil {
		t.Error("Expected error for undecodable source")
	}
}

func TestGenerateNoSizes(t *testing.T) {
	g := NewThumbnailGenerator(t.TempDir())

	thumbs, err := g.Generate(context.Background(), 1, "irrelevant", mediatypes.MediaTypeImage, nil)
	if err != nil {
		t.Errorf("Generate() with no sizes should be a no-op, got %v", err)
	}
	if thumbs != nil {
		t.Errorf("Expected no thumbnails, got %v", thumbs)
	}
}

func TestGenerateCanceled(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source.png")
	writeTestPNG(t, source, 200, 200)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewThumbnailGenerator(filepath.Join(root, "thumbs"))
	_, err := g.Generate(ctx, 1, source, mediatypes.MediaTypeImage,
		[]catalog.ThumbnailSize{catalog.ThumbnailSmall})
	if err == nil {
		t.Error("Expected error for canceled context")
	}
}

func TestSizeEdgesCoverAllClasses(t *testing.T) {
	for _, size := range catalog.ThumbnailSizes {
		if sizeEdges[size] == 0 {
			t.Errorf("No edge configured for size %s", size)
		}
	}
	if sizeEdges[catalog.ThumbnailSmall] >= sizeEdges[catalog.ThumbnailMedium] ||
		sizeEdges[catalog.ThumbnailMedium] >= sizeEdges[catalog.ThumbnailLarge] {
		t.Error("Size edges must increase small < medium < large")
	}
}

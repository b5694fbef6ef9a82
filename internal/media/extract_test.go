package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"photokeep/internal/mediatypes"
)

func writeTestPNG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test PNG: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExtractImageDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2019 Italy", "photo.png")
	writeTestPNG(t, path, 320, 200)

	exif, tags, err := NewExtractor().Extract(context.Background(), path, mediatypes.MediaTypeImage)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if exif == nil {
		t.Fatal("Expected exif with dimensions")
	}
	if exif.Width != 320 || exif.Height != 200 {
		t.Errorf("Dimensions = %dx%d, want 320x200", exif.Width, exif.Height)
	}
	if len(tags) != 1 || tags[0] != "2019 italy" {
		t.Errorf("Tags = %v, want [2019 italy]", tags)
	}
}

func TestExtractVideoYieldsOnlyTags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clips", "holiday.mp4")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not a real video"), 0o644); err != nil {
		t.Fatal(err)
	}

	exif, tags, err := NewExtractor().Extract(context.Background(), path, mediatypes.MediaTypeVideo)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if exif != nil {
		t.Errorf("Expected nil exif for video, got %+v", exif)
	}
	if len(tags) != 1 || tags[0] != "clips" {
		t.Errorf("Tags = %v, want [clips]", tags)
	}
}

func TestExtractUndecodableImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	exif, _, err := NewExtractor().Extract(context.Background(), path, mediatypes.MediaTypeImage)
	if err != nil {
		t.Fatalf("Extract() should not fail on undecodable content: %v", err)
	}
	if exif != nil {
		t.Errorf("Expected nil exif when nothing extracted, got %+v", exif)
	}
}

func TestKeywordTags(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/library/2019 Italy/IMG_1.jpg", []string{"2019 italy"}},
		{"/library/Trips/beach.png", []string{"trips"}},
		{"IMG_1.jpg", nil},
		{"/library/.hidden/x.jpg", nil},
	}

	for _, tt := range tests {
		got := keywordTags(filepath.FromSlash(tt.path))
		if len(got) != len(tt.want) {
			t.Errorf("keywordTags(%q) = %v, want %v", tt.path, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("keywordTags(%q) = %v, want %v", tt.path, got, tt.want)
			}
		}
	}
}

// buildTiffIFD0 assembles a little-endian TIFF blob carrying camera
// make, model and capture time in IFD0.
func buildTiffIFD0() []byte {
	makeVal := []byte("Canon\x00")
	modelVal := []byte("EOS\x00") // 4 bytes, stored inline
	dateVal := []byte("2023:05:01 10:00:00\x00")

	// header(8) + count(2) + 3 entries(36) + next-IFD(4) = 50
	makeOff := uint32(50)
	dateOff := makeOff + uint32(len(makeVal))

	var buf bytes.Buffer
	buf.WriteString("II")
	le := binary.LittleEndian

	w16 := func(v uint16) { _ = binary.Write(&buf, le, v) }
	w32 := func(v uint32) { _ = binary.Write(&buf, le, v) }

	w16(0x002A)
	w32(8) // IFD0 offset

	w16(3) // entry count

	// 0x010F Make, ASCII, len 6, stored at offset
	w16(0x010F)
	w16(2)
	w32(uint32(len(makeVal)))
	w32(makeOff)

	// 0x0110 Model, ASCII, len 4, inline
	w16(0x0110)
	w16(2)
	w32(uint32(len(modelVal)))
	buf.Write(modelVal)

	// 0x0132 DateTime, ASCII, len 20, stored at offset
	w16(0x0132)
	w16(2)
	w32(uint32(len(dateVal)))
	w32(dateOff)

	w32(0) // next IFD

	buf.Write(makeVal)
	buf.Write(dateVal)
	return buf.Bytes()
}

func TestParseTiffIFD0(t *testing.T) {
	exif := parseTiffIFD0(buildTiffIFD0())
	if exif == nil {
		t.Fatal("Expected parsed exif")
	}
	if exif.CameraMake != "Canon" {
		t.Errorf("CameraMake = %q, want Canon", exif.CameraMake)
	}
	if exif.CameraModel != "EOS" {
		t.Errorf("CameraModel = %q, want EOS", exif.CameraModel)
	}
	want := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	if !exif.TakenAt.Equal(want) {
		t.Errorf("TakenAt = %v, want %v", exif.TakenAt, want)
	}
}

func TestParseTiffIFD0Garbage(t *testing.T) {
	for _, blob := range [][]byte{nil, []byte("XX"), []byte("II\x2a\x00\xff\xff\xff\xff")} {
		if got := parseTiffIFD0(blob); got != nil {
			t.Errorf("parseTiffIFD0(%q) = %+v, want nil", blob, got)
		}
	}
}

func TestParseJpegExif(t *testing.T) {
	tiff := buildTiffIFD0()
	payload := append([]byte("Exif\x00\x00"), tiff...)

	var jpg bytes.Buffer
	jpg.Write([]byte{0xFF, 0xD8}) // SOI
	jpg.Write([]byte{0xFF, 0xE1})
	segLen := uint16(len(payload) + 2)
	jpg.WriteByte(byte(segLen >> 8))
	jpg.WriteByte(byte(segLen))
	jpg.Write(payload)
	jpg.Write([]byte{0xFF, 0xD9}) // EOI

	exif := parseJpegExif(&jpg)
	if exif == nil {
		t.Fatal("Expected parsed exif from APP1 segment")
	}
	if exif.CameraMake != "Canon" || exif.CameraModel != "EOS" {
		t.Errorf("Camera = %q/%q, want Canon/EOS", exif.CameraMake, exif.CameraModel)
	}
}

func TestParseJpegExifAbsent(t *testing.T) {
	// SOI straight into image data: no exif to find.
	if got := parseJpegExif(bytes.NewReader([]byte{0xFF, 0xD8, 0xFF, 0xDA, 0x00, 0x02})); got != nil {
		t.Errorf("Expected nil for JPEG without APP1, got %+v", got)
	}
	// Not a JPEG at all.
	if got := parseJpegExif(bytes.NewReader([]byte("PNG"))); got != nil {
		t.Errorf("Expected nil for non-JPEG, got %+v", got)
	}
}

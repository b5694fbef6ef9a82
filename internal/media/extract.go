package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photokeep/internal/catalog"
	"photokeep/internal/logging"
	"photokeep/internal/mediatypes"
)

// Extractor pulls descriptive metadata out of media files: pixel
// dimensions for any decodable image, plus camera make/model and
// capture time from JPEG exif segments.
type Extractor struct{}

// NewExtractor returns the default metadata extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads metadata from the file at path. Videos currently only
// yield keyword tags; image formats additionally yield dimensions and,
// for JPEG, exif camera fields. The returned exif is nil when nothing
// could be extracted.
func (e *Extractor) Extract(ctx context.Context, path string, mediaType mediatypes.MediaType) (*catalog.Exif, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	tags := keywordTags(path)

	if mediaType != mediatypes.MediaTypeImage {
		return nil, tags, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s for extraction: %w", path, err)
	}
	defer f.Close()

	exif := &catalog.Exif{}

	cfg, format, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		logging.Debug("DecodeConfig failed for %s: %v", path, err)
	} else {
		exif.Width = cfg.Width
		exif.Height = cfg.Height
	}

	if format == "jpeg" {
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			if parsed := parseJpegExif(f); parsed != nil {
				exif.CameraMake = parsed.CameraMake
				exif.CameraModel = parsed.CameraModel
				exif.TakenAt = parsed.TakenAt
			}
		}
	}

	if exif.Width == 0 && !exif.HasCameraMetadata() {
		exif = nil
	}
	return exif, tags, nil
}

// keywordTags derives descriptive tags from the file's parent
// directory name ("2019 Italy/IMG_1.jpg" tags the asset "2019 italy").
func keywordTags(path string) []string {
	parent := filepath.Base(filepath.Dir(path))
	if parent == "." || parent == "/" || parent == "" || strings.HasPrefix(parent, ".") {
		return nil
	}
	return []string{strings.ToLower(parent)}
}

// exifDateLayout is the capture-time format mandated by the exif spec.
const exifDateLayout = "2006:01:02 15:04:05"

// parseJpegExif reads the APP1 exif segment of a JPEG and returns the
// IFD0 camera make, model and original capture time. Returns nil when
// no usable segment exists. Only the three ASCII tags the catalog
// cares about are decoded; everything else is skipped.
func parseJpegExif(r io.Reader) *catalog.Exif {
	br := bufio.NewReader(r)

	// SOI marker
	var soi [2]byte
	if _, err := io.ReadFull(br, soi[:]); err != nil || soi[0] != 0xFF || soi[1] != 0xD8 {
		return nil
	}

	for {
		marker, err := br.ReadByte()
		if err != nil || marker != 0xFF {
			return nil
		}
		kind, err := br.ReadByte()
		if err != nil {
			return nil
		}
		if kind == 0xD8 || (kind >= 0xD0 && kind <= 0xD7) {
			continue // no payload
		}
		if kind == 0xDA || kind == 0xD9 {
			return nil // image data reached, no exif
		}

		var lenBuf [2]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return nil
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf[:])) - 2
		if segLen < 0 {
			return nil
		}

		payload := make([]byte, segLen)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil
		}

		if kind == 0xE1 && bytes.HasPrefix(payload, []byte("Exif\x00\x00")) {
			return parseTiffIFD0(payload[6:])
		}
	}
}

// parseTiffIFD0 decodes the first image file directory of a TIFF blob.
func parseTiffIFD0(tiff []byte) *catalog.Exif {
	if len(tiff) < 8 {
		return nil
	}

	var order binary.ByteOrder
	switch {
	case tiff[0] == 'I' && tiff[1] == 'I':
		order = binary.LittleEndian
	case tiff[0] == 'M' && tiff[1] == 'M':
		order = binary.BigEndian
	default:
		return nil
	}

	offset := order.Uint32(tiff[4:8])
	if int(offset)+2 > len(tiff) {
		return nil
	}

	count := int(order.Uint16(tiff[offset : offset+2]))
	entries := tiff[offset+2:]
	if len(entries) < count*12 {
		return nil
	}

	exif := &catalog.Exif{}
	found := false

	readASCII := func(entry []byte) string {
		valLen := int(order.Uint32(entry[4:8]))
		if valLen <= 0 {
			return ""
		}
		var raw []byte
		if valLen <= 4 {
			raw = entry[8 : 8+valLen]
		} else {
			valOff := int(order.Uint32(entry[8:12]))
			if valOff+valLen > len(tiff) {
				return ""
			}
			raw = tiff[valOff : valOff+valLen]
		}
		return strings.TrimRight(string(raw), "\x00 ")
	}

	for i := 0; i < count; i++ {
		entry := entries[i*12 : i*12+12]
		tag := order.Uint16(entry[0:2])
		typ := order.Uint16(entry[2:4])
		if typ != 2 { // ASCII only
			continue
		}
		switch tag {
		case 0x010F:
			exif.CameraMake = readASCII(entry)
			found = found || exif.CameraMake != ""
		case 0x0110:
			exif.CameraModel = readASCII(entry)
			found = found || exif.CameraModel != ""
		case 0x0132:
			if t, err := time.Parse(exifDateLayout, readASCII(entry)); err == nil {
				exif.TakenAt = t
				found = true
			}
		}
	}

	if !found {
		return nil
	}
	return exif
}

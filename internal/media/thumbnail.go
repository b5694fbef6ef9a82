package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"photokeep/internal/catalog"
	"photokeep/internal/logging"
	"photokeep/internal/mediatypes"
	"photokeep/internal/metrics"
	"photokeep/internal/workers"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// jpegQuality is the encode quality for all generated thumbnails.
const jpegQuality = 80

// sizeEdges maps each size class to its maximum pixel edge.
var sizeEdges = map[catalog.ThumbnailSize]int{
	catalog.ThumbnailSmall:  240,
	catalog.ThumbnailMedium: 720,
	catalog.ThumbnailLarge:  1440,
}

// ThumbnailGenerator renders thumbnail files for catalog assets.
// One file per (asset, size) at {rootDir}/{assetID}/{size}.jpg.
type ThumbnailGenerator struct {
	rootDir string
}

// NewThumbnailGenerator creates a generator writing under rootDir.
func NewThumbnailGenerator(rootDir string) *ThumbnailGenerator {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		logging.Warn("ThumbnailGenerator: failed to create root dir: %v", err)
	}
	return &ThumbnailGenerator{rootDir: rootDir}
}

// Path returns the physical path of one (asset, size) thumbnail file.
func (g *ThumbnailGenerator) Path(assetID int64, size catalog.ThumbnailSize) string {
	return filepath.Join(g.rootDir, strconv.FormatInt(assetID, 10), string(size)+".jpg")
}

// MissingSizes returns the size classes whose thumbnail file is absent
// on disk. This is a pure physical-existence check, independent of the
// catalog record, so thumbnails deleted out-of-band are detected.
func (g *ThumbnailGenerator) MissingSizes(assetID int64) []catalog.ThumbnailSize {
	var missing []catalog.ThumbnailSize
	for _, size := range catalog.ThumbnailSizes {
		if _, err := os.Stat(g.Path(assetID, size)); err != nil {
			missing = append(missing, size)
		}
	}
	return missing
}

// Generate renders the requested size classes for one asset and
// returns a record per size that succeeded. Individual size failures
// are collected; the returned error is non-nil when any size failed,
// but successful sizes are still returned so the caller can persist
// them.
func (g *ThumbnailGenerator) Generate(ctx context.Context, assetID int64, sourcePath string, mediaType mediatypes.MediaType, sizes []catalog.ThumbnailSize) ([]catalog.Thumbnail, error) {
	if len(sizes) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		metrics.ThumbnailDuration.WithLabelValues(string(mediaType)).Observe(time.Since(start).Seconds())
	}()

	if err := os.MkdirAll(filepath.Dir(g.Path(assetID, sizes[0])), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail dir for asset %d: %w", assetID, err)
	}

	// Videos decode once (one ffmpeg invocation) and resize per size.
	// Images without vips also decode once; with vips each size gets a
	// decode-time shrink, which is cheaper than a full decode.
	var source image.Image
	if mediaType == mediatypes.MediaTypeVideo || !IsVipsAvailable() {
		var err error
		source, err = g.decodeSource(sourcePath, mediaType)
		if err != nil {
			for _, size := range sizes {
				metrics.ThumbnailsGenerated.WithLabelValues(string(size), "error").Inc()
			}
			return nil, fmt.Errorf("failed to decode %s: %w", sourcePath, err)
		}
	}

	type sized struct {
		thumb catalog.Thumbnail
		err   error
		size  catalog.ThumbnailSize
	}

	results := make(chan sized, len(sizes))
	sem := make(chan struct{}, workers.ForCPU(len(sizes)))
	var wg sync.WaitGroup

	for _, size := range sizes {
		wg.Add(1)
		go func(size catalog.ThumbnailSize) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				results <- sized{size: size, err: ctx.Err()}
				return
			}

			thumb, err := g.renderSize(assetID, sourcePath, source, size)
			results <- sized{thumb: thumb, err: err, size: size}
		}(size)
	}

	wg.Wait()
	close(results)

	var thumbs []catalog.Thumbnail
	var errs []error
	for r := range results {
		if r.err != nil {
			metrics.ThumbnailsGenerated.WithLabelValues(string(r.size), "error").Inc()
			errs = append(errs, fmt.Errorf("size %s: %w", r.size, r.err))
			continue
		}
		metrics.ThumbnailsGenerated.WithLabelValues(string(r.size), "success").Inc()
		thumbs = append(thumbs, r.thumb)
	}

	if len(errs) > 0 {
		return thumbs, fmt.Errorf("thumbnail generation for asset %d: %d of %d sizes failed: %v",
			assetID, len(errs), len(sizes), errs[0])
	}
	return thumbs, nil
}

// renderSize produces one thumbnail file. source may be nil, in which
// case the image is loaded through vips with decode-time shrinking.
func (g *ThumbnailGenerator) renderSize(assetID int64, sourcePath string, source image.Image, size catalog.ThumbnailSize) (catalog.Thumbnail, error) {
	edge := sizeEdges[size]

	var thumb image.Image
	if source != nil {
		thumb = imaging.Fit(source, edge, edge, imaging.Lanczos)
	} else {
		img, err := loadImageWithVips(sourcePath, edge, edge)
		if err != nil {
			logging.Debug("Vips load failed for %s: %v, falling back to imaging", sourcePath, err)
			full, decErr := g.decodeSource(sourcePath, mediatypes.MediaTypeImage)
			if decErr != nil {
				return catalog.Thumbnail{}, decErr
			}
			img = imaging.Fit(full, edge, edge, imaging.Lanczos)
		}
		thumb = img
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return catalog.Thumbnail{}, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	path := g.Path(assetID, size)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return catalog.Thumbnail{}, fmt.Errorf("failed to write thumbnail %s: %w", path, err)
	}

	bounds := thumb.Bounds()
	return catalog.Thumbnail{
		AssetID:  assetID,
		Size:     size,
		FilePath: path,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		ByteSize: int64(buf.Len()),
		Format:   "jpeg",
	}, nil
}

// decodeSource decodes the full source media into an image.
func (g *ThumbnailGenerator) decodeSource(sourcePath string, mediaType mediatypes.MediaType) (image.Image, error) {
	if mediaType == mediatypes.MediaTypeVideo {
		return extractVideoFrame(sourcePath)
	}

	img, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	logging.Debug("imaging.Open failed for %s: %v, trying fallback methods", sourcePath, err)

	img, err = decodeImageFile(sourcePath)
	if err == nil {
		return img, nil
	}
	logging.Debug("Standard decode failed for %s: %v, trying ffmpeg fallback", sourcePath, err)

	return decodeImageWithFFmpeg(sourcePath)
}

func decodeImageFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, err
	}

	logging.Debug("Decoded image format: %s for %s", format, path)
	return img, nil
}

func decodeImageWithFFmpeg(path string) (image.Image, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	cmd := exec.Command("ffmpeg",
		"-i", path,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-pix_fmt", "rgb24",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}

// extractVideoFrame pulls a representative frame from a video via
// ffmpeg. Tries the one-second mark first, then the first frame for
// clips shorter than a second.
func extractVideoFrame(path string) (image.Image, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	cmd := exec.Command("ffmpeg",
		"-i", path,
		"-ss", "00:00:01",
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logging.Debug("FFmpeg first attempt failed for %s: %v, stderr: %s", path, err, stderr.String())

		cmd = exec.Command("ffmpeg",
			"-i", path,
			"-vframes", "1",
			"-f", "image2pipe",
			"-vcodec", "png",
			"-",
		)
		stdout.Reset()
		stderr.Reset()
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, stderr.String())
		}
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}

// Package mediatypes defines the extension allow-lists used to decide
// which files belong in the catalog.
//
// Supported file types:
//   - Images: jpg, jpeg, png, bmp, tiff, tif, gif, webp, heic, heif
//   - Videos: mp4, avi, mov, mkv, wmv, flv, webm, m4v, 3gp, mpeg, mpg,
//     mts, m2ts, ts
//
// Anything else is classified as MediaTypeOther and skipped during scans.
package mediatypes

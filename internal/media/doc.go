// Package media implements the default extraction and thumbnailing
// collaborators for the catalog synchronizer.
//
// Thumbnails are rendered in three size classes (small 240px, medium
// 720px, large 1440px longest-edge) as JPEG files under
// {root}/{assetID}/{size}.jpg. Image decoding prefers libvips for its
// decode-time shrinking, falling back to pure-Go decoding via the
// imaging library; video frames come from ffmpeg.
//
// Metadata extraction yields pixel dimensions for decodable images and
// camera make/model/capture-time from JPEG exif segments.
package media

// Package catalog provides the SQLite-backed persistent catalog of
// assets and folders.
//
// It stores:
//   - Assets (virtual path, checksum, size, timestamps, media type)
//   - The folder tree, with access-control grant rows that pin folders
//   - Thumbnails, exif metadata and tags per asset
//   - The ML job queue
//
// The database runs in WAL mode with foreign keys enabled; deleting an
// asset cascades to its dependents. All repository methods take an
// explicit Querier so one scan's mutations share a single transaction.
// There is no lazy loading: callers fetch dependents explicitly via
// LoadThumbnails, ExifByAsset and friends.
package catalog

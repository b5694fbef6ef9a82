// Package syncer reconciles the asset catalog with the filesystem
// state of a media library.
//
// A scan runs a fixed sequence of phases:
//   - Discover files under the library root
//   - Classify each file as new, updated, moved, or unchanged using a
//     size and modification-time heuristic before hashing content
//   - Persist new assets, materializing their folder ancestry
//   - Derive metadata: exif extraction, keyword tags, thumbnails, and
//     ML job enqueueing for new assets
//   - Persist moves and content updates for existing assets
//   - Regenerate thumbnail sizes found missing on disk
//   - Collapse duplicate assets that share a content checksum
//   - Reap assets and folders no longer backed by the filesystem
//
// All catalog mutations for one scan run inside a single transaction,
// so a failure anywhere leaves the catalog exactly as it was. Progress
// events stream to callers of ScanStream as each phase begins; the
// final event always carries Completed=true.
//
// Collaborators (scanner, hasher, extractor, thumbnailer, ML queue)
// are injected as interfaces. Per-asset collaborator failures are
// logged and skipped; they never abort the scan.
package syncer

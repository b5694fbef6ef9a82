// Package startup provides configuration loading and structured
// startup/shutdown logging for the photokeep service.
//
// Configuration comes from environment variables:
//   - LIBRARY_DIR: root of the managed media library (must exist)
//   - DATA_DIR: writable directory for the catalog database
//   - THUMBNAIL_DIR: thumbnail storage root (default DATA_DIR/thumbnails)
//   - METRICS_PORT, METRICS_ENABLED: health/metrics listener
//   - SCAN_INTERVAL: periodic re-scan interval, 0 disables
//   - SCAN_ON_START: run a scan immediately at startup
//   - THUMBNAIL_WORKERS: encoder worker cap, 0 for automatic sizing
//   - LOG_LEVEL: debug, info, warn, or error
//
// Heap limit tuning (GOMEMLIMIT, MEMORY_LIMIT, MEMORY_RATIO) is handled
// separately by the memory package before configuration loads.
//
// Directory validation happens at load time: the library must already
// exist, the data directory must be writable, and the thumbnail
// directory degrades to a disabled feature when it is not.
package startup

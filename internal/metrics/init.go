package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range []string{"new", "updated", "moved", "unchanged", "failed"} {
		FilesProcessed.WithLabelValues(outcome)
	}

	for _, phase := range []string{
		"discovering", "comparing", "persisting_new", "deriving_metadata",
		"persisting_updates", "reconciling_thumbnails", "deduplicating",
		"reaping_assets", "reaping_folders",
	} {
		ScanPhaseDuration.WithLabelValues(phase)
	}

	for _, kind := range []string{"asset", "folder"} {
		OrphansRemoved.WithLabelValues(kind)
	}

	for _, status := range []string{"success", "error"} {
		ExtractionsTotal.WithLabelValues(status)
		for _, size := range []string{"small", "medium", "large"} {
			ThumbnailsGenerated.WithLabelValues(size, status)
		}
	}

	for _, mt := range []string{"image", "video"} {
		ThumbnailDuration.WithLabelValues(mt)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemStaleErrors.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
	}

	for _, op := range []string{
		"initialize_schema", "insert_asset", "update_asset", "move_asset",
		"delete_asset", "list_assets", "insert_folder", "delete_folder",
		"list_folders", "upsert_thumbnail", "load_thumbnails", "insert_exif",
		"enqueue_ml_job", "attach_tag", "vacuum",
	} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, result := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(result)
	}
}

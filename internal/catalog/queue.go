package catalog

import (
	"context"

	"photokeep/internal/mediatypes"
)

// Queue is the default ML job enqueuer. It gates on images that
// carried camera metadata and queues one job per recognition type,
// leaning on EnqueueJob for the active-job idempotence.
type Queue struct {
	store *Store
}

func NewQueue(store *Store) *Queue {
	return &Queue{store: store}
}

// ShouldEnqueue reports whether a freshly created asset is worth
// sending through recognition. Videos and bare images without exif
// are skipped.
func (ql *Queue) ShouldEnqueue(asset *Asset, exif *Exif) bool {
	return asset.MediaType == mediatypes.MediaTypeImage && exif != nil
}

// Enqueue queues the recognition jobs for an asset and returns how
// many were actually created. Pairs that already have an active job
// are silently skipped.
func (ql *Queue) Enqueue(ctx context.Context, q Querier, asset *Asset) (int, error) {
	queued := 0
	for _, jobType := range []MlJobType{MlJobFaceDetection, MlJobObjectTagging} {
		created, err := ql.store.EnqueueJob(ctx, q, asset.ID, jobType)
		if err != nil {
			return queued, err
		}
		if created {
			queued++
		}
	}
	return queued, nil
}

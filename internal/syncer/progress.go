package syncer

import (
	"context"
	"time"
)

// Phase identifies one step of the scan state machine.
type Phase string

const (
	PhaseDiscovering           Phase = "discovering"
	PhaseComparing             Phase = "comparing"
	PhasePersistingNew         Phase = "persisting_new"
	PhaseDerivingMetadata      Phase = "deriving_metadata"
	PhasePersistingUpdates     Phase = "persisting_updates"
	PhaseReconcilingThumbnails Phase = "reconciling_thumbnails"
	PhaseDeduplicating         Phase = "deduplicating"
	PhaseReapingAssets         Phase = "reaping_assets"
	PhaseReapingFolders        Phase = "reaping_folders"
	PhaseCompleted             Phase = "completed"
	PhaseFailed                Phase = "failed"
)

// percent maps each phase start to a coarse completion percentage.
var percent = map[Phase]int{
	PhaseDiscovering:           0,
	PhaseComparing:             10,
	PhasePersistingNew:         30,
	PhaseDerivingMetadata:      40,
	PhasePersistingUpdates:     60,
	PhaseReconcilingThumbnails: 70,
	PhaseDeduplicating:         80,
	PhaseReapingAssets:         88,
	PhaseReapingFolders:        94,
	PhaseCompleted:             100,
	PhaseFailed:                100,
}

// Statistics is the running counter snapshot carried by every progress
// event and returned as the scan summary.
type Statistics struct {
	TotalFilesFound        int           `json:"totalFilesFound"`
	NewFiles               int           `json:"newFiles"`
	UpdatedFiles           int           `json:"updatedFiles"`
	MovedFiles             int           `json:"movedFiles"`
	UnchangedFiles         int           `json:"unchangedFiles"`
	FailedFiles            int           `json:"failedFiles"`
	HashesComputed         int           `json:"hashesComputed"`
	ExifExtracted          int           `json:"exifExtracted"`
	TagsDetected           int           `json:"tagsDetected"`
	MlJobsQueued           int           `json:"mlJobsQueued"`
	ThumbnailsGenerated    int           `json:"thumbnailsGenerated"`
	ThumbnailsRegenerated  int           `json:"thumbnailsRegenerated"`
	DuplicateAssetsRemoved int           `json:"duplicateAssetsRemoved"`
	OrphanedFilesRemoved   int           `json:"orphanedFilesRemoved"`
	OrphanedFoldersRemoved int           `json:"orphanedFoldersRemoved"`
	StartedAt              time.Time     `json:"startedAt"`
	FinishedAt             time.Time     `json:"finishedAt"`
	Duration               time.Duration `json:"duration"`
}

// Progress is one streamed scan event. The last event of a stream
// always has Completed set, on both success and failure; the failure
// case carries Error instead of meaningful statistics.
type Progress struct {
	Message    string     `json:"message"`
	Percentage int        `json:"percentage"`
	Statistics Statistics `json:"statistics"`
	Completed  bool       `json:"completed"`
	Error      string     `json:"error,omitempty"`
}

// emitter pushes progress events towards the consumer without ever
// blocking the scan. Intermediate events are dropped when the consumer
// lags; the final event waits for the consumer but gives up when the
// scan context ends, so an abandoned stream cannot strand the scan
// goroutine behind a full buffer.
type emitter struct {
	ch chan<- Progress
}

func (e *emitter) emit(p Progress) {
	if e == nil || e.ch == nil {
		return
	}
	select {
	case e.ch <- p:
	default:
	}
}

func (e *emitter) final(ctx context.Context, p Progress) {
	if e == nil || e.ch == nil {
		return
	}
	p.Completed = true
	// Buffered fast path first: a canceled-but-consumed stream still
	// gets its final event whenever the buffer has room.
	select {
	case e.ch <- p:
		return
	default:
	}
	select {
	case e.ch <- p:
	case <-ctx.Done():
	}
}

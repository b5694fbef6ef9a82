package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"photokeep/internal/catalog"
	"photokeep/internal/hasher"
	"photokeep/internal/logging"
	"photokeep/internal/mediatypes"
	"photokeep/internal/metrics"
	"photokeep/internal/scanner"
	"photokeep/internal/vpath"
)

// ErrScanInProgress is returned when a scan is requested while another
// scan of the same library is still running. The catalog assumes at
// most one scan at a time; this guard makes the constraint explicit.
var ErrScanInProgress = errors.New("a scan is already in progress")

// FileScanner discovers media files under the library root.
type FileScanner interface {
	Scan(ctx context.Context) ([]scanner.File, *scanner.Visit, error)
}

// MetadataExtractor pulls exif metadata and keyword tags from a file.
// Either return value may be empty without error.
type MetadataExtractor interface {
	Extract(ctx context.Context, path string, mediaType mediatypes.MediaType) (*catalog.Exif, []string, error)
}

// ThumbnailGenerator renders thumbnail files for an asset and reports
// which size classes are physically missing on disk.
type ThumbnailGenerator interface {
	Generate(ctx context.Context, assetID int64, sourcePath string, mediaType mediatypes.MediaType, sizes []catalog.ThumbnailSize) ([]catalog.Thumbnail, error)
	MissingSizes(assetID int64) []catalog.ThumbnailSize
}

// MlJobEnqueuer decides whether a new asset warrants ML processing and
// queues the jobs. Enqueueing must be idempotent per (asset, job type).
type MlJobEnqueuer interface {
	ShouldEnqueue(asset *catalog.Asset, exif *catalog.Exif) bool
	Enqueue(ctx context.Context, q catalog.Querier, asset *catalog.Asset) (int, error)
}

// Syncer reconciles the persistent catalog with the filesystem state
// of one library. All collaborators are injected; the Syncer holds no
// ambient state beyond the per-scan working set.
type Syncer struct {
	store     *catalog.Store
	scanner   FileScanner
	hasher    hasher.Hasher
	extractor MetadataExtractor
	thumbs    ThumbnailGenerator
	mlQueue   MlJobEnqueuer
	resolver  *vpath.Resolver

	mu       sync.Mutex
	running  bool
	lastScan time.Time
}

// New creates a Syncer with explicit collaborators.
func New(store *catalog.Store, fs FileScanner, h hasher.Hasher, ex MetadataExtractor, tg ThumbnailGenerator, ml MlJobEnqueuer, resolver *vpath.Resolver) *Syncer {
	return &Syncer{
		store:     store,
		scanner:   fs,
		hasher:    h,
		extractor: ex,
		thumbs:    tg,
		mlQueue:   ml,
		resolver:  resolver,
	}
}

// IsRunning reports whether a scan is currently in progress.
func (s *Syncer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastScanTime returns when the last scan completed successfully.
func (s *Syncer) LastScanTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScan
}

// Scan runs one synchronous scan and returns the final statistics.
func (s *Syncer) Scan(ctx context.Context) (*Statistics, error) {
	return s.run(ctx, nil)
}

// ScanStream runs one scan in a background goroutine, streaming
// progress events. The channel is always closed, and the last event
// always carries Completed=true, on success and failure alike.
func (s *Syncer) ScanStream(ctx context.Context) <-chan Progress {
	ch := make(chan Progress, 64)

	go func() {
		defer close(ch)
		em := &emitter{ch: ch}

		stats, err := s.run(ctx, em)
		if err != nil {
			em.final(ctx, Progress{
				Message:    "scan failed",
				Percentage: percent[PhaseFailed],
				Error:      err.Error(),
			})
			return
		}
		em.final(ctx, Progress{
			Message:    "scan completed",
			Percentage: percent[PhaseCompleted],
			Statistics: *stats,
		})
	}()

	return ch
}

// tryStart flips the running flag, refusing concurrent scans.
func (s *Syncer) tryStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Syncer) finish(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if ok {
		s.lastScan = time.Now()
	}
}

// run executes the full scan state machine. The mutation span from
// persisting new assets through folder reaping shares one catalog
// transaction: any failure rolls the catalog back whole. Thumbnail
// files written before a rollback stay on disk; regeneration is
// idempotent, so a later scan reconciles them.
func (s *Syncer) run(ctx context.Context, em *emitter) (*Statistics, error) {
	if !s.tryStart() {
		return nil, ErrScanInProgress
	}

	ok := false
	defer func() { s.finish(ok) }()

	metrics.ScanRunsTotal.Inc()
	metrics.ScanIsRunning.Set(1)
	defer metrics.ScanIsRunning.Set(0)

	stats := &Statistics{StartedAt: time.Now()}
	ph := newPhaseTracker(em, stats)

	logging.Info("Starting catalog scan of %s", s.resolver.Root())

	// Discovering
	ph.enter(PhaseDiscovering, "discovering files")
	files, visit, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	stats.TotalFilesFound = len(files)

	// Comparing
	ph.enter(PhaseComparing, fmt.Sprintf("comparing %d files against catalog", len(files)))
	assets, err := s.store.ListAssets(ctx, s.store.DB())
	if err != nil {
		return nil, s.fail(err)
	}
	st := newScanState(assets)

	// The discovered-path set must be complete before classification:
	// a checksum match against a path that is still present on disk is
	// a duplicate, not a move.
	for _, f := range files {
		if vp, err := s.resolver.ToVirtual(f.Path); err == nil {
			st.discovered[vp] = true
		}
	}

	outcomes := make([]Outcome, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(err)
		}
		o := s.classify(st, f)
		outcomes = append(outcomes, o)
		s.countOutcome(stats, o)
	}

	// Everything from here to folder reaping is one transaction.
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, s.fail(err)
	}

	err = func() error {
		ph.enter(PhasePersistingNew, fmt.Sprintf("persisting %d new assets", stats.NewFiles))
		created, err := s.persistNew(ctx, tx, st, outcomes, stats)
		if err != nil {
			return err
		}

		ph.enter(PhaseDerivingMetadata, "extracting metadata and rendering thumbnails")
		if err := s.deriveMetadata(ctx, tx, created, stats); err != nil {
			return err
		}

		ph.enter(PhasePersistingUpdates, fmt.Sprintf("persisting %d updates and %d moves", stats.UpdatedFiles, stats.MovedFiles))
		if err := s.persistUpdates(ctx, tx, st, outcomes, stats); err != nil {
			return err
		}

		ph.enter(PhaseReconcilingThumbnails, "reconciling thumbnails with disk")
		if err := s.reconcileThumbnails(ctx, tx, outcomes, stats); err != nil {
			return err
		}

		ph.enter(PhaseDeduplicating, "resolving duplicate entries")
		if err := s.resolveDuplicates(ctx, tx, st, stats); err != nil {
			return err
		}

		ph.enter(PhaseReapingAssets, "removing orphaned assets")
		if err := s.reapAssets(ctx, tx, st, stats); err != nil {
			return err
		}

		ph.enter(PhaseReapingFolders, "removing orphaned folders")
		return s.reapFolders(ctx, tx, visit, stats)
	}()

	if err = s.store.End(tx, err); err != nil {
		return nil, s.fail(err)
	}

	ph.enter(PhaseCompleted, "scan complete")
	stats.FinishedAt = time.Now()
	stats.Duration = stats.FinishedAt.Sub(stats.StartedAt)

	s.recordScan(ctx, stats)
	ok = true

	logging.Info("Scan complete: %d found, %d new, %d updated, %d moved, %d removed in %v",
		stats.TotalFilesFound, stats.NewFiles, stats.UpdatedFiles, stats.MovedFiles,
		stats.OrphanedFilesRemoved, stats.Duration)

	return stats, nil
}

func (s *Syncer) fail(err error) error {
	metrics.ScanErrors.Inc()
	logging.Error("Scan failed: %v", err)
	return err
}

func (s *Syncer) countOutcome(stats *Statistics, o Outcome) {
	metrics.FilesProcessed.WithLabelValues(o.Kind.String()).Inc()
	if o.Checksum != "" {
		stats.HashesComputed++
	}
	switch o.Kind {
	case OutcomeNew:
		stats.NewFiles++
	case OutcomeUpdated:
		stats.UpdatedFiles++
	case OutcomeMoved:
		stats.MovedFiles++
	case OutcomeUnchanged:
		stats.UnchangedFiles++
	case OutcomeFailed:
		stats.FailedFiles++
		logging.Warn("Failed to classify %s: %v", o.File.Path, o.Err)
	}
}

// recordScan refreshes the cached last-scan summary and run metrics.
func (s *Syncer) recordScan(ctx context.Context, stats *Statistics) {
	metrics.ScanLastRunTimestamp.Set(float64(stats.FinishedAt.Unix()))
	metrics.ScanLastRunDuration.Set(stats.Duration.Seconds())

	totalAssets, err := s.store.CountAssets(ctx, s.store.DB())
	if err != nil {
		logging.Warn("Failed to count assets after scan: %v", err)
	}
	totalFolders, err := s.store.CountFolders(ctx, s.store.DB())
	if err != nil {
		logging.Warn("Failed to count folders after scan: %v", err)
	}

	s.store.UpdateLastScan(catalog.LastScan{
		FinishedAt:   stats.FinishedAt,
		Duration:     stats.Duration.String(),
		TotalAssets:  totalAssets,
		TotalFolders: totalFolders,
		NewFiles:     stats.NewFiles,
		UpdatedFiles: stats.UpdatedFiles,
		MovedFiles:   stats.MovedFiles,
		RemovedFiles: stats.OrphanedFilesRemoved,
		FailedFiles:  stats.FailedFiles,
	})
}

// phaseTracker emits a progress event per phase transition and records
// phase duration metrics.
type phaseTracker struct {
	em      *emitter
	stats   *Statistics
	current Phase
	started time.Time
}

func newPhaseTracker(em *emitter, stats *Statistics) *phaseTracker {
	return &phaseTracker{em: em, stats: stats}
}

func (p *phaseTracker) enter(phase Phase, message string) {
	now := time.Now()
	if p.current != "" && p.current != PhaseCompleted {
		metrics.ScanPhaseDuration.WithLabelValues(string(p.current)).Observe(now.Sub(p.started).Seconds())
	}
	p.current = phase
	p.started = now

	logging.Debug("Scan phase: %s", phase)
	p.em.emit(Progress{
		Message:    message,
		Percentage: percent[phase],
		Statistics: *p.stats,
	})
}

package syncer

import (
	"fmt"
	"time"

	"photokeep/internal/catalog"
	"photokeep/internal/metrics"
	"photokeep/internal/scanner"
)

// mtimeTolerance absorbs filesystems that truncate modification times
// to whole seconds when deciding whether a file is unchanged.
const mtimeTolerance = time.Second

// OutcomeKind classifies one discovered file relative to the catalog.
type OutcomeKind int

const (
	// OutcomeUnchanged means the catalog entry already matches the file.
	OutcomeUnchanged OutcomeKind = iota
	// OutcomeNew means no catalog entry corresponds to the file.
	OutcomeNew
	// OutcomeUpdated means the file at a known path has new content.
	OutcomeUpdated
	// OutcomeMoved means known content reappeared at a different path.
	OutcomeMoved
	// OutcomeFailed means the file could not be classified.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeNew:
		return "new"
	case OutcomeUpdated:
		return "updated"
	case OutcomeMoved:
		return "moved"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Outcome is the per-file result of change detection.
type Outcome struct {
	Kind        OutcomeKind
	File        scanner.File
	VirtualPath string
	Checksum    string         // set when hashing was needed
	Asset       *catalog.Asset // existing entry for Updated/Moved/Unchanged; nil for New
	Err         error          // set for OutcomeFailed
}

// scanState is the working state of one scan, owned by the orchestrator
// and threaded through the per-file loop.
type scanState struct {
	byPath     map[string]*catalog.Asset
	byChecksum map[string]*catalog.Asset
	discovered map[string]bool // virtual paths of every file found this scan

	// ensureFolder cache; avoids re-resolving the same directory for
	// every file it contains.
	folders map[string]*catalog.Folder
}

// newScanState builds the per-scan lookup indexes. The checksum index
// keeps the most recently scanned entry when several share a checksum.
func newScanState(assets []catalog.Asset) *scanState {
	st := &scanState{
		byPath:     make(map[string]*catalog.Asset, len(assets)),
		byChecksum: make(map[string]*catalog.Asset, len(assets)),
		discovered: make(map[string]bool),
		folders:    make(map[string]*catalog.Folder),
	}
	for i := range assets {
		a := &assets[i]
		st.byPath[a.VirtualPath] = a
		if prev, ok := st.byChecksum[a.Checksum]; !ok || a.ScannedAt.After(prev.ScannedAt) {
			st.byChecksum[a.Checksum] = a
		}
	}
	return st
}

// classify runs change detection for one discovered file. The cheap
// size+mtime heuristic short-circuits before any content hashing;
// the hash then distinguishes moves from genuine content changes.
func (s *Syncer) classify(st *scanState, f scanner.File) Outcome {
	virtualPath, err := s.resolver.ToVirtual(f.Path)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, File: f, Err: err}
	}

	existing := st.byPath[virtualPath]
	if existing != nil && existing.Size == f.Size && withinTolerance(existing.ModifiedAt, f.ModifiedAt) {
		return Outcome{Kind: OutcomeUnchanged, File: f, VirtualPath: virtualPath, Asset: existing}
	}

	sum, err := s.hasher.Sum(f.Path)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, File: f, VirtualPath: virtualPath, Err: fmt.Errorf("hashing failed: %w", err)}
	}
	metrics.HashesComputed.Inc()

	// Known content under a path that no longer exists on disk means
	// the file moved; if the old path was also discovered this scan the
	// two are duplicates and left for the resolver to collapse. A move
	// is only recognized onto a free path: when another catalog entry
	// still occupies the target, that entry is updated in place instead,
	// and the stale record at the departed path is reaped later.
	if bysum := st.byChecksum[sum]; existing == nil && bysum != nil && bysum.VirtualPath != virtualPath && !st.discovered[bysum.VirtualPath] {
		delete(st.byPath, bysum.VirtualPath)
		st.byPath[virtualPath] = bysum
		return Outcome{Kind: OutcomeMoved, File: f, VirtualPath: virtualPath, Checksum: sum, Asset: bysum}
	}

	if existing != nil {
		return Outcome{Kind: OutcomeUpdated, File: f, VirtualPath: virtualPath, Checksum: sum, Asset: existing}
	}

	return Outcome{Kind: OutcomeNew, File: f, VirtualPath: virtualPath, Checksum: sum}
}

func withinTolerance(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= mtimeTolerance
}

package syncer

import (
	"context"
	"database/sql"
	"sort"

	"photokeep/internal/catalog"
	"photokeep/internal/filesystem"
	"photokeep/internal/logging"
	"photokeep/internal/metrics"
)

// resolveDuplicates collapses assets sharing a checksum down to one
// canonical entry per content hash. It reads through the scan's
// transaction so rows inserted earlier in the same scan are visible.
//
// Canonical selection within a group: an entry whose backing file
// still exists beats one whose file is gone, then most recently
// scanned, then lowest ID. After selection the canonical entry's
// path and name are refreshed to the most recently modified path in
// the group that was discovered this scan, and every other member is
// deleted (thumbnail and exif rows cascade). Undiscovered paths are
// never refresh targets: the asset reaper removes entries at such
// paths, and parking the canonical entry there would destroy the
// whole group while its file still exists.
func (s *Syncer) resolveDuplicates(ctx context.Context, tx *sql.Tx, st *scanState, stats *Statistics) error {
	assets, err := s.store.ListAssets(ctx, tx)
	if err != nil {
		return err
	}

	groups := make(map[string][]*catalog.Asset)
	for i := range assets {
		a := &assets[i]
		if a.Checksum == "" {
			continue
		}
		groups[a.Checksum] = append(groups[a.Checksum], a)
	}

	for sum, group := range groups {
		if len(group) < 2 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		canonical := s.pickCanonical(group)
		logging.Debug("Resolving %d duplicates for checksum %s, keeping asset %d", len(group)-1, sum, canonical.ID)

		var freshest *catalog.Asset
		for _, a := range group {
			if !st.discovered[a.VirtualPath] {
				continue
			}
			if freshest == nil || a.ModifiedAt.After(freshest.ModifiedAt) {
				freshest = a
			}
		}

		// Losers go first so the unique virtual_path slot is free
		// before the canonical entry claims the freshest path.
		for _, a := range group {
			if a.ID == canonical.ID {
				continue
			}
			if err := s.store.DeleteAsset(ctx, tx, a.ID); err != nil {
				return err
			}
			stats.DuplicateAssetsRemoved++
			metrics.DuplicatesRemoved.Inc()
		}

		if freshest != nil && freshest.VirtualPath != canonical.VirtualPath {
			if err := s.store.MoveAsset(ctx, tx, canonical.ID, freshest.VirtualPath, freshest.Name, freshest.FolderID, canonical.Size, freshest.ModifiedAt, canonical.ScannedAt); err != nil {
				return err
			}
		}
	}

	return nil
}

// pickCanonical applies the survivor tie-break to a duplicate group.
func (s *Syncer) pickCanonical(group []*catalog.Asset) *catalog.Asset {
	sort.Slice(group, func(i, j int) bool {
		ei, ej := s.fileExists(group[i]), s.fileExists(group[j])
		if ei != ej {
			return ei
		}
		if !group[i].ScannedAt.Equal(group[j].ScannedAt) {
			return group[i].ScannedAt.After(group[j].ScannedAt)
		}
		return group[i].ID < group[j].ID
	})
	return group[0]
}

func (s *Syncer) fileExists(a *catalog.Asset) bool {
	physical, err := s.resolver.ToPhysical(a.VirtualPath)
	if err != nil {
		return false
	}
	info, err := filesystem.Stat(physical, filesystem.DefaultRetryConfig())
	return err == nil && info.Mode().IsRegular()
}

package syncer

import (
	"context"
	"database/sql"
	"sort"

	"photokeep/internal/catalog"
	"photokeep/internal/logging"
	"photokeep/internal/metrics"
	"photokeep/internal/scanner"
	"photokeep/internal/vpath"
)

// reapAssets deletes every catalog entry whose virtual path was not
// discovered in this scan. Dependent thumbnail and exif rows cascade.
func (s *Syncer) reapAssets(ctx context.Context, tx *sql.Tx, st *scanState, stats *Statistics) error {
	assets, err := s.store.ListAssets(ctx, tx)
	if err != nil {
		return err
	}

	for i := range assets {
		a := &assets[i]
		if st.discovered[a.VirtualPath] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		logging.Debug("Reaping orphaned asset %d at %s", a.ID, a.VirtualPath)
		if err := s.store.DeleteAsset(ctx, tx, a.ID); err != nil {
			return err
		}
		stats.OrphanedFilesRemoved++
		metrics.OrphansRemoved.WithLabelValues("asset").Inc()
	}

	return nil
}

// reapFolders deletes folders that no longer justify their existence.
// A folder survives when it holds assets, carries an access grant, was
// visited on disk during this scan, or sits on the ancestor chain of a
// surviving folder. Deletion runs deepest-first so children go before
// their parents.
func (s *Syncer) reapFolders(ctx context.Context, tx *sql.Tx, visit *scanner.Visit, stats *Statistics) error {
	folders, err := s.store.ListFolders(ctx, tx)
	if err != nil {
		return err
	}
	counts, err := s.store.FolderAssetCounts(ctx, tx)
	if err != nil {
		return err
	}
	granted, err := s.store.GrantedFolderIDs(ctx, tx)
	if err != nil {
		return err
	}

	byID := make(map[int64]*catalog.Folder, len(folders))
	for i := range folders {
		byID[folders[i].ID] = &folders[i]
	}

	keep := make(map[int64]bool, len(folders))
	for i := range folders {
		f := &folders[i]
		if counts[f.ID] > 0 || granted[f.ID] {
			keep[f.ID] = true
			continue
		}
		if physical, err := s.resolver.ToPhysical(f.Path); err == nil && visit.Contains(physical) {
			keep[f.ID] = true
		}
	}
	for id := range keep {
		for parent := byID[id]; parent != nil && parent.ParentID != 0; {
			parent = byID[parent.ParentID]
			if parent == nil || keep[parent.ID] {
				break
			}
			keep[parent.ID] = true
		}
	}

	var doomed []*catalog.Folder
	for i := range folders {
		if !keep[folders[i].ID] {
			doomed = append(doomed, &folders[i])
		}
	}
	sort.Slice(doomed, func(i, j int) bool {
		return vpath.Depth(doomed[i].Path) > vpath.Depth(doomed[j].Path)
	})

	for _, f := range doomed {
		if err := ctx.Err(); err != nil {
			return err
		}
		logging.Debug("Reaping orphaned folder %d at %s", f.ID, f.Path)
		if err := s.store.DeleteFolder(ctx, tx, f.ID); err != nil {
			return err
		}
		stats.OrphanedFoldersRemoved++
		metrics.OrphansRemoved.WithLabelValues("folder").Inc()
	}

	return nil
}

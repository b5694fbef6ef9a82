package syncer

import (
	"context"
	"errors"
	"fmt"

	"photokeep/internal/catalog"
	"photokeep/internal/vpath"
)

// ensureFolder lazily materializes the folder at the given virtual
// directory path, creating missing ancestors first. Idempotent: a
// second call for the same path hits the per-scan cache or the unique
// path row. Returns nil for paths outside the managed prefix.
func (s *Syncer) ensureFolder(ctx context.Context, q catalog.Querier, st *scanState, dir string) (*catalog.Folder, error) {
	dir = vpath.Normalize(dir)
	if !vpath.IsVirtual(dir) {
		return nil, nil
	}

	if f, ok := st.folders[dir]; ok {
		return f, nil
	}

	f, err := s.store.FolderByPath(ctx, q, dir)
	if err == nil {
		st.folders[dir] = f
		return f, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up folder %s: %w", dir, err)
	}

	// Parent must exist before the child is created.
	var parentID int64
	if parent := vpath.Parent(dir); parent != "" {
		pf, err := s.ensureFolder(ctx, q, st, parent)
		if err != nil {
			return nil, err
		}
		if pf != nil {
			parentID = pf.ID
		}
	}

	f = &catalog.Folder{
		Path:     dir,
		Name:     vpath.Base(dir),
		ParentID: parentID,
	}
	if err := s.store.InsertFolder(ctx, q, f); err != nil {
		return nil, err
	}

	st.folders[dir] = f
	return f, nil
}

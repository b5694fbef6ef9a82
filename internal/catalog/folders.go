package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertFolder persists a new folder and fills in its ID. The parent
// must already exist (or be 0 for a root folder).
func (s *Store) InsertFolder(ctx context.Context, q Querier, f *Folder) error {
	done := observeQuery("insert_folder")

	result, err := q.ExecContext(ctx,
		"INSERT INTO folders (path, name, parent_id) VALUES (?, ?, ?)",
		f.Path, f.Name, nullID(f.ParentID),
	)
	if err != nil {
		done(err)
		return fmt.Errorf("failed to insert folder %s: %w", f.Path, err)
	}

	f.ID, err = result.LastInsertId()
	done(err)
	return err
}

// FolderByPath returns the folder stored at the given normalized path,
// or ErrNotFound.
func (s *Store) FolderByPath(ctx context.Context, q Querier, path string) (*Folder, error) {
	var f Folder
	err := q.QueryRowContext(ctx,
		"SELECT id, path, name, COALESCE(parent_id, 0) FROM folders WHERE path = ?",
		path,
	).Scan(&f.ID, &f.Path, &f.Name, &f.ParentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFolders returns every folder in the catalog.
func (s *Store) ListFolders(ctx context.Context, q Querier) ([]Folder, error) {
	done := observeQuery("list_folders")

	rows, err := q.QueryContext(ctx, "SELECT id, path, name, COALESCE(parent_id, 0) FROM folders ORDER BY id")
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	var folders []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.Path, &f.Name, &f.ParentID); err != nil {
			done(err)
			return nil, err
		}
		folders = append(folders, f)
	}
	err = rows.Err()
	done(err)
	return folders, err
}

// DeleteFolder removes a folder. Grants cascade; children must be
// deleted first (the reaper works deepest-first).
func (s *Store) DeleteFolder(ctx context.Context, q Querier, id int64) error {
	done := observeQuery("delete_folder")

	_, err := q.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", id)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to delete folder %d: %w", id, err)
	}
	return nil
}

// FolderAssetCounts returns the number of assets per folder ID.
// Folders with zero assets are absent from the map.
func (s *Store) FolderAssetCounts(ctx context.Context, q Querier) (map[int64]int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT folder_id, COUNT(*) FROM assets
		WHERE folder_id IS NOT NULL GROUP BY folder_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count folder assets: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// FolderHasGrants reports whether any access-control grant still
// references the folder.
func (s *Store) FolderHasGrants(ctx context.Context, q Querier, folderID int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM folder_grants WHERE folder_id = ?", folderID,
	).Scan(&n)
	return n > 0, err
}

// GrantedFolderIDs returns the set of folder IDs referenced by at
// least one access-control grant.
func (s *Store) GrantedFolderIDs(ctx context.Context, q Querier) (map[int64]bool, error) {
	rows, err := q.QueryContext(ctx, "SELECT DISTINCT folder_id FROM folder_grants")
	if err != nil {
		return nil, fmt.Errorf("failed to list granted folders: %w", err)
	}
	defer rows.Close()

	granted := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		granted[id] = true
	}
	return granted, rows.Err()
}

// InsertFolderGrant records an access-control grant. Called by the
// permission layer; the scan pipeline only reads grants.
func (s *Store) InsertFolderGrant(ctx context.Context, q Querier, g *FolderGrant) error {
	result, err := q.ExecContext(ctx, `
		INSERT INTO folder_grants (folder_id, grantee, permission) VALUES (?, ?, ?)
		ON CONFLICT(folder_id, grantee, permission) DO NOTHING
	`, g.FolderID, g.Grantee, g.Permission)
	if err != nil {
		return fmt.Errorf("failed to insert grant for folder %d: %w", g.FolderID, err)
	}
	if id, idErr := result.LastInsertId(); idErr == nil {
		g.ID = id
	}
	return nil
}

// CountFolders returns the number of folders in the catalog.
func (s *Store) CountFolders(ctx context.Context, q Querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM folders").Scan(&n)
	return n, err
}

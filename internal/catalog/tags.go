package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// GetOrCreateTag returns the tag with the given name, creating it when
// absent. Names are matched case-insensitively.
func (s *Store) GetOrCreateTag(ctx context.Context, q Querier, name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("tag name cannot be empty")
	}

	var tag Tag
	err := q.QueryRowContext(ctx,
		"SELECT id, name FROM tags WHERE name = ? COLLATE NOCASE", name,
	).Scan(&tag.ID, &tag.Name)
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	result, err := q.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag %q: %w", name, err)
	}

	tag.ID, _ = result.LastInsertId()
	tag.Name = name
	return &tag, nil
}

// AttachTag links a tag to an asset. Attaching twice is a no-op.
func (s *Store) AttachTag(ctx context.Context, q Querier, assetID, tagID int64) error {
	done := observeQuery("attach_tag")

	_, err := q.ExecContext(ctx, `
		INSERT INTO asset_tags (asset_id, tag_id) VALUES (?, ?)
		ON CONFLICT(asset_id, tag_id) DO NOTHING
	`, assetID, tagID)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to attach tag %d to asset %d: %w", tagID, assetID, err)
	}
	return nil
}

// TagsByAsset returns the tag names attached to an asset, sorted.
func (s *Store) TagsByAsset(ctx context.Context, q Querier, assetID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.name FROM tags t
		JOIN asset_tags at ON at.tag_id = t.id
		WHERE at.asset_id = ? ORDER BY t.name
	`, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags for asset %d: %w", assetID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

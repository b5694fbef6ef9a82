package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"photokeep/internal/mediatypes"
)

// ErrNotFound is returned when a catalog record does not exist.
var ErrNotFound = errors.New("catalog record not found")

// InsertAsset persists a new asset and fills in its ID.
func (s *Store) InsertAsset(ctx context.Context, q Querier, a *Asset) error {
	done := observeQuery("insert_asset")

	result, err := q.ExecContext(ctx, `
		INSERT INTO assets (name, virtual_path, size, checksum, media_type, extension,
			created_at, modified_at, scanned_at, folder_id, owner_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.Name,
		a.VirtualPath,
		a.Size,
		a.Checksum,
		string(a.MediaType),
		a.Extension,
		a.CreatedAt.Unix(),
		a.ModifiedAt.Unix(),
		a.ScannedAt.Unix(),
		nullID(a.FolderID),
		nullID(a.OwnerID),
	)
	if err != nil {
		done(err)
		return fmt.Errorf("failed to insert asset %s: %w", a.VirtualPath, err)
	}

	a.ID, err = result.LastInsertId()
	done(err)
	return err
}

// UpdateAssetContent rewrites the checksum, size and timestamps of an
// existing asset whose file content changed in place.
func (s *Store) UpdateAssetContent(ctx context.Context, q Querier, id int64, checksum string, size int64, modifiedAt, scannedAt time.Time) error {
	done := observeQuery("update_asset")

	_, err := q.ExecContext(ctx, `
		UPDATE assets SET checksum = ?, size = ?, modified_at = ?, scanned_at = ?
		WHERE id = ?
	`, checksum, size, modifiedAt.Unix(), scannedAt.Unix(), id)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to update asset %d: %w", id, err)
	}
	return nil
}

// MoveAsset rewrites the path, name, folder and file attributes of an
// asset whose content reappeared at a different location. Identity is
// preserved.
func (s *Store) MoveAsset(ctx context.Context, q Querier, id int64, virtualPath, name string, folderID, size int64, modifiedAt, scannedAt time.Time) error {
	done := observeQuery("move_asset")

	_, err := q.ExecContext(ctx, `
		UPDATE assets SET virtual_path = ?, name = ?, folder_id = ?, size = ?, modified_at = ?, scanned_at = ?
		WHERE id = ?
	`, virtualPath, name, nullID(folderID), size, modifiedAt.Unix(), scannedAt.Unix(), id)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to move asset %d to %s: %w", id, virtualPath, err)
	}
	return nil
}

// DeleteAsset removes an asset. Thumbnails, exif, tags and ML jobs
// cascade via foreign keys.
func (s *Store) DeleteAsset(ctx context.Context, q Querier, id int64) error {
	done := observeQuery("delete_asset")

	_, err := q.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to delete asset %d: %w", id, err)
	}
	return nil
}

const assetColumns = `id, name, virtual_path, size, checksum, media_type, extension,
	created_at, modified_at, scanned_at, COALESCE(folder_id, 0), COALESCE(owner_id, 0)`

// ListAssets returns every asset in the catalog.
func (s *Store) ListAssets(ctx context.Context, q Querier) ([]Asset, error) {
	done := observeQuery("list_assets")

	rows, err := q.QueryContext(ctx, "SELECT "+assetColumns+" FROM assets ORDER BY id")
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			done(err)
			return nil, err
		}
		assets = append(assets, a)
	}
	err = rows.Err()
	done(err)
	return assets, err
}

// AssetByVirtualPath returns the asset stored at the given virtual
// path, or ErrNotFound.
func (s *Store) AssetByVirtualPath(ctx context.Context, q Querier, virtualPath string) (*Asset, error) {
	row := q.QueryRowContext(ctx, "SELECT "+assetColumns+" FROM assets WHERE virtual_path = ?", virtualPath)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CountAssets returns the number of assets in the catalog.
func (s *Store) CountAssets(ctx context.Context, q Querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets").Scan(&n)
	return n, err
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (Asset, error) {
	var a Asset
	var mediaType string
	var createdAt, modifiedAt, scannedAt int64

	err := row.Scan(
		&a.ID, &a.Name, &a.VirtualPath, &a.Size, &a.Checksum, &mediaType,
		&a.Extension, &createdAt, &modifiedAt, &scannedAt, &a.FolderID, &a.OwnerID,
	)
	if err != nil {
		return Asset{}, err
	}

	a.MediaType = mediatypes.MediaType(mediaType)
	a.CreatedAt = time.Unix(createdAt, 0)
	a.ModifiedAt = time.Unix(modifiedAt, 0)
	a.ScannedAt = time.Unix(scannedAt, 0)
	return a, nil
}

// UpsertThumbnail inserts or replaces the thumbnail record for one
// (asset, size) pair.
func (s *Store) UpsertThumbnail(ctx context.Context, q Querier, t *Thumbnail) error {
	done := observeQuery("upsert_thumbnail")

	result, err := q.ExecContext(ctx, `
		INSERT INTO thumbnails (asset_id, size, file_path, width, height, byte_size, format)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset_id, size) DO UPDATE SET
			file_path = excluded.file_path,
			width = excluded.width,
			height = excluded.height,
			byte_size = excluded.byte_size,
			format = excluded.format
	`, t.AssetID, string(t.Size), t.FilePath, t.Width, t.Height, t.ByteSize, t.Format)
	if err != nil {
		done(err)
		return fmt.Errorf("failed to upsert thumbnail %s for asset %d: %w", t.Size, t.AssetID, err)
	}

	if id, idErr := result.LastInsertId(); idErr == nil {
		t.ID = id
	}
	done(nil)
	return nil
}

// LoadThumbnails returns the thumbnail records of one asset.
func (s *Store) LoadThumbnails(ctx context.Context, q Querier, assetID int64) ([]Thumbnail, error) {
	done := observeQuery("load_thumbnails")

	rows, err := q.QueryContext(ctx, `
		SELECT id, asset_id, size, file_path, width, height, byte_size, format
		FROM thumbnails WHERE asset_id = ? ORDER BY size
	`, assetID)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to load thumbnails for asset %d: %w", assetID, err)
	}
	defer rows.Close()

	var thumbs []Thumbnail
	for rows.Next() {
		var t Thumbnail
		var size string
		if err := rows.Scan(&t.ID, &t.AssetID, &size, &t.FilePath, &t.Width, &t.Height, &t.ByteSize, &t.Format); err != nil {
			done(err)
			return nil, err
		}
		t.Size = ThumbnailSize(size)
		thumbs = append(thumbs, t)
	}
	err = rows.Err()
	done(err)
	return thumbs, err
}

// InsertExif persists extracted camera metadata for a newly created
// asset. Replaces any previous row for the asset.
func (s *Store) InsertExif(ctx context.Context, q Querier, e *Exif) error {
	done := observeQuery("insert_exif")

	var takenAt any
	if !e.TakenAt.IsZero() {
		takenAt = e.TakenAt.Unix()
	}

	_, err := q.ExecContext(ctx, `
		INSERT OR REPLACE INTO exif (asset_id, camera_make, camera_model, lens,
			focal_length, f_number, exposure_time, iso, taken_at,
			latitude, longitude, width, height, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.AssetID, e.CameraMake, e.CameraModel, e.Lens,
		e.FocalLength, e.FNumber, e.ExposureTime, e.ISO, takenAt,
		e.Latitude, e.Longitude, e.Width, e.Height, e.Description,
	)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to insert exif for asset %d: %w", e.AssetID, err)
	}
	return nil
}

// ExifByAsset returns the exif row of one asset, or ErrNotFound.
func (s *Store) ExifByAsset(ctx context.Context, q Querier, assetID int64) (*Exif, error) {
	var e Exif
	var takenAt sql.NullInt64
	var camMake, camModel, lens, exposure, description sql.NullString
	var focal, fnum, lat, lon sql.NullFloat64
	var iso, width, height sql.NullInt64

	err := q.QueryRowContext(ctx, `
		SELECT asset_id, camera_make, camera_model, lens, focal_length, f_number,
			exposure_time, iso, taken_at, latitude, longitude, width, height, description
		FROM exif WHERE asset_id = ?
	`, assetID).Scan(
		&e.AssetID, &camMake, &camModel, &lens, &focal, &fnum,
		&exposure, &iso, &takenAt, &lat, &lon, &width, &height, &description,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	e.CameraMake = camMake.String
	e.CameraModel = camModel.String
	e.Lens = lens.String
	e.ExposureTime = exposure.String
	e.Description = description.String
	e.FocalLength = focal.Float64
	e.FNumber = fnum.Float64
	e.Latitude = lat.Float64
	e.Longitude = lon.Float64
	e.ISO = int(iso.Int64)
	e.Width = int(width.Int64)
	e.Height = int(height.Int64)
	if takenAt.Valid {
		e.TakenAt = time.Unix(takenAt.Int64, 0)
	}
	return &e, nil
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

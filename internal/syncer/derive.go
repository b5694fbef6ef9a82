package syncer

import (
	"context"
	"database/sql"
	"time"

	"photokeep/internal/catalog"
	"photokeep/internal/logging"
	"photokeep/internal/metrics"
	"photokeep/internal/scanner"
	"photokeep/internal/vpath"
)

// createdAsset pairs a freshly inserted asset with its source file.
type createdAsset struct {
	asset *catalog.Asset
	file  scanner.File
}

// persistNew inserts an asset row for every OutcomeNew file, lazily
// materializing the folder ancestry first. Store errors are fatal for
// the scan; they abort the transaction.
func (s *Syncer) persistNew(ctx context.Context, tx *sql.Tx, st *scanState, outcomes []Outcome, stats *Statistics) ([]createdAsset, error) {
	now := time.Now()
	var created []createdAsset

	for i := range outcomes {
		o := &outcomes[i]
		if o.Kind != OutcomeNew {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var folderID int64
		folder, err := s.ensureFolder(ctx, tx, st, vpath.Parent(o.VirtualPath))
		if err != nil {
			return nil, err
		}
		if folder != nil {
			folderID = folder.ID
		}

		asset := &catalog.Asset{
			Name:        o.File.Name,
			VirtualPath: o.VirtualPath,
			Size:        o.File.Size,
			Checksum:    o.Checksum,
			MediaType:   o.File.Type,
			Extension:   o.File.Extension,
			CreatedAt:   o.File.CreatedAt,
			ModifiedAt:  o.File.ModifiedAt,
			ScannedAt:   now,
			FolderID:    folderID,
		}
		if err := s.store.InsertAsset(ctx, tx, asset); err != nil {
			return nil, err
		}

		st.byPath[asset.VirtualPath] = asset
		if prev, ok := st.byChecksum[asset.Checksum]; !ok || asset.ScannedAt.After(prev.ScannedAt) {
			st.byChecksum[asset.Checksum] = asset
		}

		created = append(created, createdAsset{asset: asset, file: o.File})
	}

	return created, nil
}

// deriveMetadata runs the extraction, thumbnailing and ML-enqueue
// collaborators for newly created assets. Collaborator failures for
// one asset are logged and never abort the batch; the asset keeps
// whatever derived data succeeded. Catalog write failures stay fatal.
//
// Metadata is extracted for new assets only: an existing asset's
// metadata is never re-extracted just because its content changed.
func (s *Syncer) deriveMetadata(ctx context.Context, tx *sql.Tx, created []createdAsset, stats *Statistics) error {
	for _, c := range created {
		if err := ctx.Err(); err != nil {
			return err
		}

		exif, tags, err := s.extractor.Extract(ctx, c.file.Path, c.asset.MediaType)
		if err != nil {
			metrics.ExtractionsTotal.WithLabelValues("error").Inc()
			logging.Warn("Metadata extraction failed for %s: %v", c.file.Path, err)
		} else {
			metrics.ExtractionsTotal.WithLabelValues("success").Inc()
		}

		if exif != nil {
			exif.AssetID = c.asset.ID
			if err := s.store.InsertExif(ctx, tx, exif); err != nil {
				return err
			}
			stats.ExifExtracted++
		}

		for _, name := range tags {
			tag, err := s.store.GetOrCreateTag(ctx, tx, name)
			if err != nil {
				return err
			}
			if err := s.store.AttachTag(ctx, tx, c.asset.ID, tag.ID); err != nil {
				return err
			}
			stats.TagsDetected++
		}

		thumbs, err := s.thumbs.Generate(ctx, c.asset.ID, c.file.Path, c.asset.MediaType, catalog.ThumbnailSizes)
		if err != nil {
			logging.Warn("Thumbnail generation failed for %s: %v", c.file.Path, err)
		}
		for i := range thumbs {
			if err := s.store.UpsertThumbnail(ctx, tx, &thumbs[i]); err != nil {
				return err
			}
			stats.ThumbnailsGenerated++
		}

		if s.mlQueue.ShouldEnqueue(c.asset, exif) {
			queued, err := s.mlQueue.Enqueue(ctx, tx, c.asset)
			if err != nil {
				logging.Warn("ML enqueue failed for asset %d: %v", c.asset.ID, err)
				continue
			}
			stats.MlJobsQueued += queued
			metrics.MlJobsQueued.Add(float64(queued))
		}
	}

	return nil
}

// persistUpdates applies the in-place mutations of moved and updated
// files to the catalog.
func (s *Syncer) persistUpdates(ctx context.Context, tx *sql.Tx, st *scanState, outcomes []Outcome, stats *Statistics) error {
	now := time.Now()

	for i := range outcomes {
		o := &outcomes[i]
		if err := ctx.Err(); err != nil {
			return err
		}

		switch o.Kind {
		case OutcomeMoved:
			var folderID int64
			folder, err := s.ensureFolder(ctx, tx, st, vpath.Parent(o.VirtualPath))
			if err != nil {
				return err
			}
			if folder != nil {
				folderID = folder.ID
			}

			if err := s.store.MoveAsset(ctx, tx, o.Asset.ID, o.VirtualPath, o.File.Name, folderID, o.File.Size, o.File.ModifiedAt, now); err != nil {
				return err
			}
			o.Asset.VirtualPath = o.VirtualPath
			o.Asset.Name = o.File.Name
			o.Asset.FolderID = folderID
			o.Asset.Size = o.File.Size
			o.Asset.ModifiedAt = o.File.ModifiedAt
			o.Asset.ScannedAt = now

		case OutcomeUpdated:
			if err := s.store.UpdateAssetContent(ctx, tx, o.Asset.ID, o.Checksum, o.File.Size, o.File.ModifiedAt, now); err != nil {
				return err
			}
			o.Asset.Checksum = o.Checksum
			o.Asset.Size = o.File.Size
			o.Asset.ModifiedAt = o.File.ModifiedAt
			o.Asset.ScannedAt = now
		}
	}

	return nil
}

// reconcileThumbnails heals existing assets whose thumbnail files were
// deleted out-of-band: only the physically missing size classes are
// regenerated, independent of what the catalog records.
func (s *Syncer) reconcileThumbnails(ctx context.Context, tx *sql.Tx, outcomes []Outcome, stats *Statistics) error {
	for i := range outcomes {
		o := &outcomes[i]
		if o.Asset == nil {
			continue
		}
		switch o.Kind {
		case OutcomeUnchanged, OutcomeUpdated, OutcomeMoved:
		default:
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		missing := s.thumbs.MissingSizes(o.Asset.ID)
		if len(missing) == 0 {
			continue
		}

		logging.Debug("Regenerating %d missing thumbnail sizes for asset %d", len(missing), o.Asset.ID)
		thumbs, err := s.thumbs.Generate(ctx, o.Asset.ID, o.File.Path, o.Asset.MediaType, missing)
		if err != nil {
			logging.Warn("Thumbnail regeneration failed for %s: %v", o.File.Path, err)
		}
		for j := range thumbs {
			if err := s.store.UpsertThumbnail(ctx, tx, &thumbs[j]); err != nil {
				return err
			}
			stats.ThumbnailsRegenerated++
		}
	}

	return nil
}

package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"photokeep/internal/mediatypes"
)

// Integration tests against a real SQLite catalog file.

func setupTestStore(t testing.TB) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to open test catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testAsset(path string) *Asset {
	now := time.Now().Truncate(time.Second)
	return &Asset{
		Name:        filepath.Base(path),
		VirtualPath: path,
		Size:        1024,
		Checksum:    "deadbeef" + path,
		MediaType:   mediatypes.MediaTypeImage,
		Extension:   ".jpg",
		CreatedAt:   now,
		ModifiedAt:  now,
		ScannedAt:   now,
	}
}

func TestInsertAndFetchAsset(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := testAsset("/assets/photo.jpg")
	if err := store.InsertAsset(ctx, store.DB(), a); err != nil {
		t.Fatalf("InsertAsset() error: %v", err)
	}
	if a.ID == 0 {
		t.Fatal("InsertAsset() did not set the asset ID")
	}

	got, err := store.AssetByVirtualPath(ctx, store.DB(), "/assets/photo.jpg")
	if err != nil {
		t.Fatalf("AssetByVirtualPath() error: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("Fetched ID = %d, want %d", got.ID, a.ID)
	}
	if got.Checksum != a.Checksum {
		t.Errorf("Fetched checksum = %q, want %q", got.Checksum, a.Checksum)
	}
	if got.MediaType != mediatypes.MediaTypeImage {
		t.Errorf("Fetched media type = %v, want image", got.MediaType)
	}
}

func TestAssetByVirtualPathNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.AssetByVirtualPath(context.Background(), store.DB(), "/assets/nope.jpg")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestVirtualPathUnique(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.InsertAsset(ctx, store.DB(), testAsset("/assets/dup.jpg")); err != nil {
		t.Fatalf("First insert error: %v", err)
	}
	if err := store.InsertAsset(ctx, store.DB(), testAsset("/assets/dup.jpg")); err == nil {
		t.Error("Expected unique constraint violation on duplicate virtual path")
	}
}

func TestUpdateAssetContent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := testAsset("/assets/photo.jpg")
	if err := store.InsertAsset(ctx, store.DB(), a); err != nil {
		t.Fatal(err)
	}

	newScan := time.Now().Add(time.Minute).Truncate(time.Second)
	if err := store.UpdateAssetContent(ctx, store.DB(), a.ID, "newsum", 2048, newScan, newScan); err != nil {
		t.Fatalf("UpdateAssetContent() error: %v", err)
	}

	got, err := store.AssetByVirtualPath(ctx, store.DB(), a.VirtualPath)
	if err != nil {
		t.Fatal(err)
	}
	if got.Checksum != "newsum" {
		t.Errorf("Checksum = %q, want newsum", got.Checksum)
	}
	if got.Size != 2048 {
		t.Errorf("Size = %d, want 2048", got.Size)
	}
}

func TestMoveAsset(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := testAsset("/assets/old.jpg")
	if err := store.InsertAsset(ctx, store.DB(), a); err != nil {
		t.Fatal(err)
	}

	now := time.Now().Truncate(time.Second)
	if err := store.MoveAsset(ctx, store.DB(), a.ID, "/assets/new.jpg", "new.jpg", 0, a.Size, now, now); err != nil {
		t.Fatalf("MoveAsset() error: %v", err)
	}

	if _, err := store.AssetByVirtualPath(ctx, store.DB(), "/assets/old.jpg"); !errors.Is(err, ErrNotFound) {
		t.Error("Old path should no longer resolve")
	}
	got, err := store.AssetByVirtualPath(ctx, store.DB(), "/assets/new.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != a.ID {
		t.Errorf("Moved asset ID = %d, want %d (same identity)", got.ID, a.ID)
	}
	if got.Name != "new.jpg" {
		t.Errorf("Name = %q, want new.jpg", got.Name)
	}
}

func TestDeleteAssetCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := testAsset("/assets/photo.jpg")
	if err := store.InsertAsset(ctx, store.DB(), a); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertThumbnail(ctx, store.DB(), &Thumbnail{
		AssetID: a.ID, Size: ThumbnailSmall, FilePath: "/thumbs/1/small.jpg",
		Width: 240, Height: 180, ByteSize: 5000, Format: "jpeg",
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertExif(ctx, store.DB(), &Exif{AssetID: a.ID, CameraMake: "Canon"}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteAsset(ctx, store.DB(), a.ID); err != nil {
		t.Fatalf("DeleteAsset() error: %v", err)
	}

	thumbs, err := store.LoadThumbnails(ctx, store.DB(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(thumbs) != 0 {
		t.Errorf("Expected thumbnails to cascade, found %d", len(thumbs))
	}
	if _, err := store.ExifByAsset(ctx, store.DB(), a.ID); !errors.Is(err, ErrNotFound) {
		t.Error("Expected exif to cascade")
	}
}

func TestUpsertThumbnailReplaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := testAsset("/assets/photo.jpg")
	if err := store.InsertAsset(ctx, store.DB(), a); err != nil {
		t.Fatal(err)
	}

	first := &Thumbnail{AssetID: a.ID, Size: ThumbnailMedium, FilePath: "/thumbs/1/medium.jpg", Width: 720, Height: 480, ByteSize: 100, Format: "jpeg"}
	if err := store.UpsertThumbnail(ctx, store.DB(), first); err != nil {
		t.Fatal(err)
	}
	second := &Thumbnail{AssetID: a.ID, Size: ThumbnailMedium, FilePath: "/thumbs/1/medium.jpg", Width: 720, Height: 480, ByteSize: 200, Format: "jpeg"}
	if err := store.UpsertThumbnail(ctx, store.DB(), second); err != nil {
		t.Fatalf("Upsert of existing (asset, size) pair failed: %v", err)
	}

	thumbs, err := store.LoadThumbnails(ctx, store.DB(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(thumbs) != 1 {
		t.Fatalf("Expected 1 thumbnail after upsert, got %d", len(thumbs))
	}
	if thumbs[0].ByteSize != 200 {
		t.Errorf("ByteSize = %d, want 200 (replaced)", thumbs[0].ByteSize)
	}
}

func TestFolderHierarchy(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	root := &Folder{Path: "/assets", Name: "assets"}
	if err := store.InsertFolder(ctx, store.DB(), root); err != nil {
		t.Fatalf("InsertFolder(root) error: %v", err)
	}
	child := &Folder{Path: "/assets/trips", Name: "trips", ParentID: root.ID}
	if err := store.InsertFolder(ctx, store.DB(), child); err != nil {
		t.Fatalf("InsertFolder(child) error: %v", err)
	}

	got, err := store.FolderByPath(ctx, store.DB(), "/assets/trips")
	if err != nil {
		t.Fatal(err)
	}
	if got.ParentID != root.ID {
		t.Errorf("ParentID = %d, want %d", got.ParentID, root.ID)
	}

	folders, err := store.ListFolders(ctx, store.DB())
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 2 {
		t.Errorf("Expected 2 folders, got %d", len(folders))
	}
}

func TestFolderAssetCounts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	folder := &Folder{Path: "/assets/trips", Name: "trips"}
	if err := store.InsertFolder(ctx, store.DB(), folder); err != nil {
		t.Fatal(err)
	}
	a := testAsset("/assets/trips/beach.jpg")
	a.FolderID = folder.ID
	if err := store.InsertAsset(ctx, store.DB(), a); err != nil {
		t.Fatal(err)
	}

	counts, err := store.FolderAssetCounts(ctx, store.DB())
	if err != nil {
		t.Fatalf("FolderAssetCounts() error: %v", err)
	}
	if counts[folder.ID] != 1 {
		t.Errorf("Count for folder %d = %d, want 1", folder.ID, counts[folder.ID])
	}
}

func TestFolderGrantsPinFolders(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	folder := &Folder{Path: "/assets/shared", Name: "shared"}
	if err := store.InsertFolder(ctx, store.DB(), folder); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertFolderGrant(ctx, store.DB(), &FolderGrant{
		FolderID: folder.ID, Grantee: "family", Permission: "read",
	}); err != nil {
		t.Fatalf("InsertFolderGrant() error: %v", err)
	}

	has, err := store.FolderHasGrants(ctx, store.DB(), folder.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !has {
		t.Error("Expected folder to have grants")
	}

	granted, err := store.GrantedFolderIDs(ctx, store.DB())
	if err != nil {
		t.Fatal(err)
	}
	if !granted[folder.ID] {
		t.Error("Expected folder in granted set")
	}
}

func TestTagsCaseInsensitive(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.GetOrCreateTag(ctx, store.DB(), "Vacation")
	if err != nil {
		t.Fatalf("GetOrCreateTag() error: %v", err)
	}
	second, err := store.GetOrCreateTag(ctx, store.DB(), "vacation")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("Case variants created separate tags: %d vs %d", first.ID, second.ID)
	}
}

func TestAttachTagIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := testAsset("/assets/photo.jpg")
	if err := store.InsertAsset(ctx, store.DB(), a); err != nil {
		t.Fatal(err)
	}
	tag, err := store.GetOrCreateTag(ctx, store.DB(), "beach")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := store.AttachTag(ctx, store.DB(), a.ID, tag.ID); err != nil {
			t.Fatalf("AttachTag() attempt %d error: %v", i+1, err)
		}
	}

	tags, err := store.TagsByAsset(ctx, store.DB(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 {
		t.Errorf("Expected 1 tag after repeated attach, got %d", len(tags))
	}
}

func TestEnqueueJobIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := testAsset("/assets/photo.jpg")
	if err := store.InsertAsset(ctx, store.DB(), a); err != nil {
		t.Fatal(err)
	}

	created, err := store.EnqueueJob(ctx, store.DB(), a.ID, MlJobFaceDetection)
	if err != nil {
		t.Fatalf("EnqueueJob() error: %v", err)
	}
	if !created {
		t.Fatal("First enqueue should create a job")
	}

	created, err = store.EnqueueJob(ctx, store.DB(), a.ID, MlJobFaceDetection)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("Second enqueue for an active pair should be a no-op")
	}

	// Completing the job frees the slot for a fresh enqueue.
	jobs, err := store.JobsByAsset(ctx, store.DB(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(jobs))
	}
	if err := store.UpdateJobStatus(ctx, store.DB(), jobs[0].ID, MlJobCompleted); err != nil {
		t.Fatal(err)
	}

	created, err = store.EnqueueJob(ctx, store.DB(), a.ID, MlJobFaceDetection)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("Enqueue after completion should create a new job")
	}
}

func TestTransactionRollback(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if err := store.InsertAsset(ctx, tx, testAsset("/assets/doomed.jpg")); err != nil {
		t.Fatal(err)
	}

	// Visible inside the transaction.
	if _, err := store.AssetByVirtualPath(ctx, tx, "/assets/doomed.jpg"); err != nil {
		t.Errorf("Asset should be visible inside the transaction: %v", err)
	}

	failure := errors.New("scan failed")
	if err := store.End(tx, failure); !errors.Is(err, failure) {
		t.Errorf("End() should return the original error, got %v", err)
	}

	if _, err := store.AssetByVirtualPath(ctx, store.DB(), "/assets/doomed.jpg"); !errors.Is(err, ErrNotFound) {
		t.Error("Rolled-back asset should not exist")
	}
}

func TestTransactionCommit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.InsertAsset(ctx, tx, testAsset("/assets/kept.jpg")); err != nil {
		t.Fatal(err)
	}
	if err := store.End(tx, nil); err != nil {
		t.Fatalf("End(nil) error: %v", err)
	}

	if _, err := store.AssetByVirtualPath(ctx, store.DB(), "/assets/kept.jpg"); err != nil {
		t.Errorf("Committed asset should exist: %v", err)
	}
}

func TestCounts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.InsertAsset(ctx, store.DB(), testAsset("/assets/one.jpg")); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertFolder(ctx, store.DB(), &Folder{Path: "/assets", Name: "assets"}); err != nil {
		t.Fatal(err)
	}

	assets, err := store.CountAssets(ctx, store.DB())
	if err != nil {
		t.Fatal(err)
	}
	if assets != 1 {
		t.Errorf("CountAssets() = %d, want 1", assets)
	}

	folders, err := store.CountFolders(ctx, store.DB())
	if err != nil {
		t.Fatal(err)
	}
	if folders != 1 {
		t.Errorf("CountFolders() = %d, want 1", folders)
	}
}

func TestLastScanCache(t *testing.T) {
	store := setupTestStore(t)

	if store.LastScan() != nil {
		t.Error("Expected no cached scan on a fresh store")
	}

	last := LastScan{
		FinishedAt:  time.Now(),
		Duration:    "1.5s",
		TotalAssets: 42,
		NewFiles:    3,
	}
	store.UpdateLastScan(last)

	got := store.LastScan()
	if got == nil {
		t.Fatal("Expected cached scan")
	}
	if got.TotalAssets != 42 || got.NewFiles != 3 {
		t.Errorf("Cached scan = %+v, want TotalAssets=42, NewFiles=3", got)
	}
}

func TestVacuum(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Vacuum(); err != nil {
		t.Errorf("Vacuum() error: %v", err)
	}
}

package catalog

import (
	"time"

	"photokeep/internal/mediatypes"
)

// Asset is one catalog entry for a media file inside the managed
// library. The virtual path is unique across the catalog; the checksum
// is not (duplicates exist transiently until the resolver collapses
// them).
type Asset struct {
	ID          int64
	Name        string
	VirtualPath string
	Size        int64
	Checksum    string
	MediaType   mediatypes.MediaType
	Extension   string
	CreatedAt   time.Time
	ModifiedAt  time.Time
	ScannedAt   time.Time
	FolderID    int64 // 0 when the asset sits at the library root
	OwnerID     int64 // 0 when unowned
}

// Folder is one node of the lazily materialized folder tree.
type Folder struct {
	ID       int64
	Path     string // normalized virtual path, unique
	Name     string
	ParentID int64 // 0 for the root folder
}

// ThumbnailSize is the size class of a generated thumbnail.
type ThumbnailSize string

const (
	ThumbnailSmall  ThumbnailSize = "small"
	ThumbnailMedium ThumbnailSize = "medium"
	ThumbnailLarge  ThumbnailSize = "large"
)

// ThumbnailSizes lists every size class a complete asset carries.
var ThumbnailSizes = []ThumbnailSize{ThumbnailSmall, ThumbnailMedium, ThumbnailLarge}

// Thumbnail records one generated thumbnail file. The (asset, size)
// pair is unique.
type Thumbnail struct {
	ID       int64
	AssetID  int64
	Size     ThumbnailSize
	FilePath string
	Width    int
	Height   int
	ByteSize int64
	Format   string
}

// Exif holds extracted camera metadata. At most one row per asset;
// every field is optional.
type Exif struct {
	AssetID      int64
	CameraMake   string
	CameraModel  string
	Lens         string
	FocalLength  float64
	FNumber      float64
	ExposureTime string
	ISO          int
	TakenAt      time.Time
	Latitude     float64
	Longitude    float64
	Width        int
	Height       int
	Description  string
}

// HasCameraMetadata reports whether any camera field was extracted.
// The ML enqueuer uses this as its default predicate.
func (e *Exif) HasCameraMetadata() bool {
	if e == nil {
		return false
	}
	return e.CameraMake != "" || e.CameraModel != "" || !e.TakenAt.IsZero()
}

// Tag is a descriptive label attached to assets.
type Tag struct {
	ID   int64
	Name string
}

// MlJobType identifies a machine-learning job kind.
type MlJobType string

const (
	MlJobFaceDetection MlJobType = "face_detection"
	MlJobObjectTagging MlJobType = "object_tagging"
)

// MlJobStatus is the lifecycle state of an ML job.
type MlJobStatus string

const (
	MlJobPending    MlJobStatus = "pending"
	MlJobProcessing MlJobStatus = "processing"
	MlJobCompleted  MlJobStatus = "completed"
	MlJobFailed     MlJobStatus = "failed"
)

// MlJob is one queued machine-learning job. At most one active
// (pending or processing) job exists per (asset, job type) pair.
type MlJob struct {
	ID        int64
	AssetID   int64
	JobType   MlJobType
	Status    MlJobStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FolderGrant is an access-control row maintained by the permission
// layer. The orphan reaper never deletes a folder that still carries a
// grant.
type FolderGrant struct {
	ID         int64
	FolderID   int64
	Grantee    string
	Permission string
}

// LastScan is the cached result of the most recent completed scan,
// served from the health endpoint.
type LastScan struct {
	FinishedAt   time.Time `json:"finishedAt"`
	Duration     string    `json:"duration"`
	TotalAssets  int       `json:"totalAssets"`
	TotalFolders int       `json:"totalFolders"`
	NewFiles     int       `json:"newFiles"`
	UpdatedFiles int       `json:"updatedFiles"`
	MovedFiles   int       `json:"movedFiles"`
	RemovedFiles int       `json:"removedFiles"`
	FailedFiles  int       `json:"failedFiles"`
}

package domain

import "context"

// Subscription is a standing live view over a queried set. Every value on
// Updates is a full snapshot that supersedes the previous one; there is no
// incremental diffing. Close stops delivery and releases the underlying
// server-side listener. After Close, Updates and Err eventually stop
// producing values.
type Subscription[T any] interface {
	Updates() <-chan T
	Err() <-chan error
	Close()
}

// FolderListSubscription delivers snapshots of a user's folder names.
type FolderListSubscription = Subscription[[]string]

// PhotoListSubscription delivers snapshots of a photo list.
type PhotoListSubscription = Subscription[[]Photo]

// BatchOpKind selects the effect of one entry in an atomic batch.
type BatchOpKind int

const (
	BatchWrite BatchOpKind = iota
	BatchDelete
)

// BatchOp is one document operation inside an atomic multi-document commit.
// Photo is only consulted for BatchWrite.
type BatchOp struct {
	Kind     BatchOpKind
	UserRoot string
	Folder   string
	PhotoID  string
	Photo    Photo
}

// CatalogStore is the boundary with the remote document database. All paths
// are already user-scoped by the caller; the store does not know about
// sessions. Records that fail to decode are dropped from returned lists,
// not reported as errors.
type CatalogStore interface {
	ListFolders(ctx context.Context, userRoot string) ([]string, error)
	ObserveFolders(ctx context.Context, userRoot string) (FolderListSubscription, error)

	// ListPhotos returns the folder's photos ordered ascending by CreatedAt.
	ListPhotos(ctx context.Context, userRoot, folder string) ([]Photo, error)
	ObservePhotos(ctx context.Context, userRoot, folder string) (PhotoListSubscription, error)
	ObserveAllPhotos(ctx context.Context, userRoot string) (PhotoListSubscription, error)
	CountPhotos(ctx context.Context, userRoot, folder string) (int64, error)

	WritePhoto(ctx context.Context, userRoot, folder, id string, photo Photo) error
	UpdatePhotoFields(ctx context.Context, userRoot, folder, id string, fields map[string]any) error
	DeletePhoto(ctx context.Context, userRoot, folder, id string) error

	// Batch commits every operation atomically: either all writes and
	// deletes land or none do.
	Batch(ctx context.Context, ops []BatchOp) error

	CreateFolderMeta(ctx context.Context, userRoot, name string, createdAt int64) error
	DeleteFolderMeta(ctx context.Context, userRoot, name string) error
}

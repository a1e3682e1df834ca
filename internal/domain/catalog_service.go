package domain

import "context"

// UpdatePhotoParams carries a partial-field photo update. Every field listed
// here is written; fields of the record not listed are untouched.
type UpdatePhotoParams struct {
	Folder  string   `json:"folder"`
	PhotoID string   `json:"photo_id"`
	Comment string   `json:"comment"`
	Tags    []string `json:"tags"`
	Name    string   `json:"name"`
	Country string   `json:"country"`
	Store   string   `json:"store"`
	Price   float64  `json:"price"`
	Rating  int      `json:"rating"`
}

// CatalogService translates domain operations into remote-service calls.
// Every method requires a signed-in session and fails fast with
// ErrNotSignedIn otherwise. Implementations own the user-scoping and
// public-identifier conventions; callers never see raw store paths.
type CatalogService interface {
	GetFolders(ctx context.Context, sess Session) ([]string, error)
	ObserveFolders(ctx context.Context, sess Session) (FolderListSubscription, error)
	CreateFolder(ctx context.Context, sess Session, name string) error
	RenameFolder(ctx context.Context, sess Session, oldName, newName string) error
	DeleteFolder(ctx context.Context, sess Session, name string) error
	CountPhotos(ctx context.Context, sess Session, folder string) (int64, error)

	GetPhotos(ctx context.Context, sess Session, folder string) ([]Photo, error)
	ObservePhotos(ctx context.Context, sess Session, folder string) (PhotoListSubscription, error)
	ObserveAllPhotos(ctx context.Context, sess Session) (PhotoListSubscription, error)

	// UploadMedia pushes a local file to the media service and returns the
	// stored URL. SavePhoto then creates the catalog record for that URL,
	// deriving the record id from the URL filename.
	UploadMedia(ctx context.Context, localPath string) (string, error)
	SavePhoto(ctx context.Context, sess Session, folder, imageURL string) (Photo, error)
	UpdatePhoto(ctx context.Context, sess Session, params UpdatePhotoParams) error
	DeletePhoto(ctx context.Context, sess Session, folder, photoID, imageURL string) error
}

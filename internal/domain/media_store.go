package domain

import "context"

// UploadResult is what the media service reports after a successful upload.
type UploadResult struct {
	SecureURL string
}

// MediaStore is the boundary with the remote media-hosting service. Upload
// stores the file at localPath under the service-side upload directory and
// returns a stable URL; Destroy removes a stored object by its public
// identifier (upload directory prefix included).
type MediaStore interface {
	Upload(ctx context.Context, localPath string) (UploadResult, error)
	Destroy(ctx context.Context, publicID string) error
}

package domain

import "errors"

var (
	// ErrNotSignedIn is returned by user-scoped operations invoked without a
	// signed-in user.
	ErrNotSignedIn = errors.New("no signed-in user")

	// ErrPhotoNotFound is returned when a photo id does not exist under the
	// addressed folder.
	ErrPhotoNotFound = errors.New("photo not found")

	// ErrFolderNotFound is returned when a folder name does not exist for
	// the user.
	ErrFolderNotFound = errors.New("folder not found")

	// ErrMediaDeleteFailed is returned when the media service rejects a
	// destroy request for a derived public identifier.
	ErrMediaDeleteFailed = errors.New("media deletion failed")
)

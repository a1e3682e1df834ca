package managers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/swasher/productus/internal/domain"
	"github.com/swasher/productus/pkg/mediaurl"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const countCacheTTL = 30 * time.Second

// catalogManager translates catalog operations into document-store and
// media-store calls. It owns the user-scoping convention (everything lives
// under the session's user root) and applies the public-identifier
// derivation at save and delete time so the two always agree.
type catalogManager struct {
	store     domain.CatalogStore
	media     domain.MediaStore
	uploadDir string
	counts    *redis.Client
}

type CatalogManagerDependencies struct {
	Store     domain.CatalogStore
	Media     domain.MediaStore
	UploadDir string

	// Counts is an optional redis client used to cache folder photo counts.
	Counts *redis.Client
}

func NewCatalogManager(deps CatalogManagerDependencies) domain.CatalogService {
	return &catalogManager{
		store:     deps.Store,
		media:     deps.Media,
		uploadDir: deps.UploadDir,
		counts:    deps.Counts,
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func (m *catalogManager) GetFolders(ctx context.Context, sess domain.Session) ([]string, error) {
	if !sess.SignedIn() {
		return nil, domain.ErrNotSignedIn
	}
	return m.store.ListFolders(ctx, sess.UserRoot())
}

func (m *catalogManager) ObserveFolders(ctx context.Context, sess domain.Session) (domain.FolderListSubscription, error) {
	if !sess.SignedIn() {
		return nil, domain.ErrNotSignedIn
	}
	return m.store.ObserveFolders(ctx, sess.UserRoot())
}

func (m *catalogManager) CreateFolder(ctx context.Context, sess domain.Session, name string) error {
	if !sess.SignedIn() {
		return domain.ErrNotSignedIn
	}
	return m.store.CreateFolderMeta(ctx, sess.UserRoot(), name, nowMillis())
}

// RenameFolder has no atomic remote counterpart; it is create-new, copy all
// records in one batch while deleting the originals, then drop the old
// metadata. A failure halts the sequence where it happened. If the final
// metadata delete fails the old folder survives as an empty husk; retrying
// the rename clears it.
func (m *catalogManager) RenameFolder(ctx context.Context, sess domain.Session, oldName, newName string) error {
	if !sess.SignedIn() {
		return domain.ErrNotSignedIn
	}
	userRoot := sess.UserRoot()

	if err := m.store.CreateFolderMeta(ctx, userRoot, newName, nowMillis()); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", newName, err)
	}

	photos, err := m.store.ListPhotos(ctx, userRoot, oldName)
	if err != nil {
		return fmt.Errorf("failed to read folder %s: %w", oldName, err)
	}

	ops := make([]domain.BatchOp, 0, len(photos)*2)
	for _, photo := range photos {
		moved := photo
		moved.Folder = newName

		ops = append(ops, domain.BatchOp{
			Kind:     domain.BatchWrite,
			UserRoot: userRoot,
			Folder:   newName,
			PhotoID:  photo.ID,
			Photo:    moved,
		})
		ops = append(ops, domain.BatchOp{
			Kind:     domain.BatchDelete,
			UserRoot: userRoot,
			Folder:   oldName,
			PhotoID:  photo.ID,
		})
	}

	if err := m.store.Batch(ctx, ops); err != nil {
		return fmt.Errorf("failed to move photos from %s to %s: %w", oldName, newName, err)
	}

	if err := m.store.DeleteFolderMeta(ctx, userRoot, oldName); err != nil {
		return fmt.Errorf("failed to delete folder %s: %w", oldName, err)
	}

	m.invalidateCounts(ctx, userRoot, oldName, newName)

	return nil
}

// DeleteFolder removes the folder's catalog records in one batch, then
// best-effort deletes each media object, then drops the folder metadata.
// The catalog-side deletion is authoritative; media failures are logged and
// never surface to the caller.
func (m *catalogManager) DeleteFolder(ctx context.Context, sess domain.Session, name string) error {
	if !sess.SignedIn() {
		return domain.ErrNotSignedIn
	}
	userRoot := sess.UserRoot()

	photos, err := m.store.ListPhotos(ctx, userRoot, name)
	if err != nil {
		return fmt.Errorf("failed to read folder %s: %w", name, err)
	}

	ops := make([]domain.BatchOp, 0, len(photos))
	imageURLs := make([]string, 0, len(photos))
	for _, photo := range photos {
		ops = append(ops, domain.BatchOp{
			Kind:     domain.BatchDelete,
			UserRoot: userRoot,
			Folder:   name,
			PhotoID:  photo.ID,
		})
		if photo.ImageURL != "" {
			imageURLs = append(imageURLs, photo.ImageURL)
		}
	}

	if err := m.store.Batch(ctx, ops); err != nil {
		return fmt.Errorf("failed to delete photos in %s: %w", name, err)
	}

	m.destroyMediaObjects(ctx, imageURLs)

	if err := m.store.DeleteFolderMeta(ctx, userRoot, name); err != nil {
		return fmt.Errorf("failed to delete folder %s: %w", name, err)
	}

	m.invalidateCounts(ctx, userRoot, name)

	return nil
}

// destroyMediaObjects deletes stored media concurrently. Each deletion is
// independent: one failing does not stop the others.
func (m *catalogManager) destroyMediaObjects(ctx context.Context, imageURLs []string) {
	if len(imageURLs) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, imageURL := range imageURLs {
		wg.Add(1)
		go func(imageURL string) {
			defer wg.Done()
			publicID := m.destroyHandle(imageURL)
			if err := m.media.Destroy(ctx, publicID); err != nil {
				log.Warn().Err(err).Str("public_id", publicID).Msg("Failed to delete media object")
			}
		}(imageURL)
	}
	wg.Wait()
}

func (m *catalogManager) CountPhotos(ctx context.Context, sess domain.Session, folder string) (int64, error) {
	if !sess.SignedIn() {
		return 0, domain.ErrNotSignedIn
	}
	userRoot := sess.UserRoot()

	cacheKey := countCacheKey(userRoot, folder)
	if m.counts != nil {
		if cached, err := m.counts.Get(ctx, cacheKey).Int64(); err == nil {
			return cached, nil
		}
	}

	count, err := m.store.CountPhotos(ctx, userRoot, folder)
	if err != nil {
		return 0, err
	}

	if m.counts != nil {
		if err := m.counts.Set(ctx, cacheKey, count, countCacheTTL).Err(); err != nil {
			log.Debug().Err(err).Str("folder", folder).Msg("Failed to cache folder count")
		}
	}

	return count, nil
}

func (m *catalogManager) GetPhotos(ctx context.Context, sess domain.Session, folder string) ([]domain.Photo, error) {
	if !sess.SignedIn() {
		return nil, domain.ErrNotSignedIn
	}
	return m.store.ListPhotos(ctx, sess.UserRoot(), folder)
}

func (m *catalogManager) ObservePhotos(ctx context.Context, sess domain.Session, folder string) (domain.PhotoListSubscription, error) {
	if !sess.SignedIn() {
		return nil, domain.ErrNotSignedIn
	}
	return m.store.ObservePhotos(ctx, sess.UserRoot(), folder)
}

func (m *catalogManager) ObserveAllPhotos(ctx context.Context, sess domain.Session) (domain.PhotoListSubscription, error) {
	if !sess.SignedIn() {
		return nil, domain.ErrNotSignedIn
	}
	return m.store.ObserveAllPhotos(ctx, sess.UserRoot())
}

func (m *catalogManager) UploadMedia(ctx context.Context, localPath string) (string, error) {
	result, err := m.media.Upload(ctx, localPath)
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}
	return result.SecureURL, nil
}

// SavePhoto creates the catalog record for a freshly uploaded media object.
// The record id is derived from the URL filename; deriving the same id
// again at delete time is what addresses the media object.
func (m *catalogManager) SavePhoto(ctx context.Context, sess domain.Session, folder, imageURL string) (domain.Photo, error) {
	if !sess.SignedIn() {
		return domain.Photo{}, domain.ErrNotSignedIn
	}
	userRoot := sess.UserRoot()

	publicID := mediaurl.PublicID(imageURL)

	photo := domain.Photo{
		ID:        publicID,
		ImageURL:  imageURL,
		Folder:    folder,
		Comment:   "",
		Tags:      []string{},
		CreatedAt: nowMillis(),
	}

	if err := m.store.WritePhoto(ctx, userRoot, folder, publicID, photo); err != nil {
		return domain.Photo{}, fmt.Errorf("failed to save photo: %w", err)
	}

	m.invalidateCounts(ctx, userRoot, folder)

	return photo, nil
}

func (m *catalogManager) UpdatePhoto(ctx context.Context, sess domain.Session, params domain.UpdatePhotoParams) error {
	if !sess.SignedIn() {
		return domain.ErrNotSignedIn
	}

	fields := map[string]any{
		"name":    params.Name,
		"comment": params.Comment,
		"tags":    params.Tags,
		"country": params.Country,
		"store":   params.Store,
		"price":   params.Price,
		"rating":  params.Rating,
	}

	return m.store.UpdatePhotoFields(ctx, sess.UserRoot(), params.Folder, params.PhotoID, fields)
}

// DeletePhoto removes the catalog record first, then the media object. A
// media-side failure is reported to the caller but the record stays gone:
// the catalog deletion is authoritative.
func (m *catalogManager) DeletePhoto(ctx context.Context, sess domain.Session, folder, photoID, imageURL string) error {
	if !sess.SignedIn() {
		return domain.ErrNotSignedIn
	}
	userRoot := sess.UserRoot()

	if err := m.store.DeletePhoto(ctx, userRoot, folder, photoID); err != nil {
		return fmt.Errorf("failed to delete photo record: %w", err)
	}

	m.invalidateCounts(ctx, userRoot, folder)

	publicID := m.destroyHandle(imageURL)
	if err := m.media.Destroy(ctx, publicID); err != nil {
		return fmt.Errorf("failed to delete media for %s: %w", photoID, err)
	}

	return nil
}

// destroyHandle rebuilds the media service's object handle from a stored
// URL: the upload directory plus the filename-derived public identifier.
func (m *catalogManager) destroyHandle(imageURL string) string {
	publicID := mediaurl.PublicID(imageURL)
	if m.uploadDir == "" {
		return publicID
	}
	return m.uploadDir + "/" + publicID
}

func countCacheKey(userRoot, folder string) string {
	return strings.Join([]string{"productus", "count", userRoot, folder}, ":")
}

func (m *catalogManager) invalidateCounts(ctx context.Context, userRoot string, folders ...string) {
	if m.counts == nil {
		return
	}

	keys := make([]string, 0, len(folders))
	for _, folder := range folders {
		keys = append(keys, countCacheKey(userRoot, folder))
	}

	if err := m.counts.Del(ctx, keys...).Err(); err != nil {
		log.Debug().Err(err).Msg("Failed to invalidate folder count cache")
	}
}

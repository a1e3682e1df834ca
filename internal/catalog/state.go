// Package catalog holds the live, observed collections backing the photo
// screens: folders, the current folder's photos, the full-catalog search
// corpus, and the views derived from them. One State exists per signed-in
// user. All observable state is owned here; screens read and subscribe but
// never mutate.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/swasher/productus/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// State reconciles three independent live views and exposes derived,
// filtered projections. Mutations serialize on one mutex, so no two
// callbacks ever interleave on the same observable.
type State struct {
	service domain.CatalogService
	session domain.Session

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	filterTag    string
	filterFolder string
	searchQuery  string
	photosFolder string
	photosSub    domain.PhotoListSubscription

	folders        *observable[[]string]
	photos         *observable[[]domain.Photo]
	filteredPhotos *observable[[]domain.Photo]
	allPhotos      *observable[[]domain.Photo]
	searchResults  *observable[[]domain.Photo]
	folderCounts   *observable[map[string]int64]
}

// NewState creates the state module for one user and starts the standing
// folder-list and search-corpus subscriptions.
func NewState(ctx context.Context, service domain.CatalogService, sess domain.Session) *State {
	ctx, cancel := context.WithCancel(ctx)

	s := &State{
		service: service,
		session: sess,
		ctx:     ctx,
		cancel:  cancel,

		folders:        newObservable([]string{}),
		photos:         newObservable([]domain.Photo{}),
		filteredPhotos: newObservable([]domain.Photo{}),
		allPhotos:      newObservable([]domain.Photo{}),
		searchResults:  newObservable([]domain.Photo{}),
		folderCounts:   newObservable(map[string]int64{}),
	}

	s.watchFolders()
	s.watchAllPhotos()

	return s
}

// Close stops every live subscription owned by the state.
func (s *State) Close() {
	s.cancel()

	s.mu.Lock()
	if s.photosSub != nil {
		s.photosSub.Close()
		s.photosSub = nil
	}
	s.mu.Unlock()
}

func (s *State) watchFolders() {
	sub, err := s.service.ObserveFolders(s.ctx, s.session)
	if err != nil {
		log.Error().Err(err).Str("user", s.session.UserID).Msg("Failed to observe folders")
		return
	}

	go pumpLoop(s.ctx, sub, func(snapshot []string) {
		s.folders.Set(snapshot)
	})
}

func (s *State) watchAllPhotos() {
	sub, err := s.service.ObserveAllPhotos(s.ctx, s.session)
	if err != nil {
		log.Error().Err(err).Str("user", s.session.UserID).Msg("Failed to observe photo collection")
		return
	}

	go pumpLoop(s.ctx, sub, func(snapshot []domain.Photo) {
		s.allPhotos.Set(snapshot)
	})
}

// pumpLoop drains one subscription until it or the state closes.
func pumpLoop[T any](ctx context.Context, sub domain.Subscription[T], apply func(T)) {
	for {
		select {
		case snapshot, ok := <-sub.Updates():
			if !ok {
				return
			}
			apply(snapshot)
		case err := <-sub.Err():
			log.Error().Err(err).Msg("Live subscription error")
		case <-ctx.Done():
			sub.Close()
			return
		}
	}
}

// ObservePhotos points the live photo view at the given folder. Calling it
// again with the same folder is a no-op: exactly one subscription is active
// at a time. Switching folders closes the previous subscription, and a
// folder guard drops any emission it had still in flight.
func (s *State) ObservePhotos(folder string) error {
	s.mu.Lock()
	if s.photosSub != nil && s.photosFolder == folder {
		s.mu.Unlock()
		return nil
	}
	if s.photosSub != nil {
		s.photosSub.Close()
		s.photosSub = nil
	}
	s.photosFolder = folder
	s.mu.Unlock()

	sub, err := s.service.ObservePhotos(s.ctx, s.session, folder)
	if err != nil {
		return fmt.Errorf("failed to observe folder %s: %w", folder, err)
	}

	s.mu.Lock()
	if s.photosFolder != folder {
		// Lost a race with a newer ObservePhotos call; the newer target wins.
		s.mu.Unlock()
		sub.Close()
		return nil
	}
	s.photosSub = sub
	s.mu.Unlock()

	go pumpLoop(s.ctx, sub, func(snapshot []domain.Photo) {
		s.applyPhotoSnapshot(folder, snapshot)
	})

	return nil
}

// applyPhotoSnapshot replaces the photo list wholesale. Snapshot arrival
// always takes precedence over locally held optimistic entries.
func (s *State) applyPhotoSnapshot(folder string, snapshot []domain.Photo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.photosFolder != folder {
		return
	}

	s.photos.Set(snapshot)
	s.recomputeFilteredLocked()
}

func (s *State) recomputeFilteredLocked() {
	s.filteredPhotos.Set(filterAndSort(s.photos.Get(), s.filterTag, s.filterFolder))
}

// SetFilterTag sets or clears (empty string) the tag predicate.
func (s *State) SetFilterTag(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filterTag = tag
	s.recomputeFilteredLocked()
}

// SetFilterFolder sets or clears (empty string) the folder predicate.
func (s *State) SetFilterFolder(folder string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filterFolder = folder
	s.recomputeFilteredLocked()
}

// SearchPhotos stores the query and recomputes results against the
// already-resident corpus. No network round-trip happens per keystroke.
func (s *State) SearchPhotos(query string) {
	s.mu.Lock()
	s.searchQuery = query
	s.mu.Unlock()

	s.searchResults.Set(searchCorpus(s.allPhotos.Get(), query))
}

// ClearSearchResults empties the result list, keeping the stored query.
func (s *State) ClearSearchResults() {
	s.searchResults.Set([]domain.Photo{})
}

// LoadPhotos refreshes the photo list with a one-shot read, for callers
// that are not holding a live subscription.
func (s *State) LoadPhotos(ctx context.Context, folder string) error {
	photos, err := s.service.GetPhotos(ctx, s.session, folder)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos.Set(photos)
	s.recomputeFilteredLocked()

	return nil
}

// LoadFolders refreshes the folder list with a one-shot read.
func (s *State) LoadFolders(ctx context.Context) error {
	folders, err := s.service.GetFolders(ctx, s.session)
	if err != nil {
		return err
	}
	s.folders.Set(folders)
	return nil
}

func (s *State) CreateFolder(ctx context.Context, name string) error {
	if err := s.service.CreateFolder(ctx, s.session, name); err != nil {
		log.Error().Err(err).Str("folder", name).Msg("Failed to create folder")
		return err
	}
	s.reloadFolders(ctx)
	return nil
}

func (s *State) RenameFolder(ctx context.Context, oldName, newName string) error {
	if err := s.service.RenameFolder(ctx, s.session, oldName, newName); err != nil {
		log.Error().Err(err).Str("from", oldName).Str("to", newName).Msg("Failed to rename folder")
		return err
	}
	s.reloadFolders(ctx)
	return nil
}

func (s *State) DeleteFolder(ctx context.Context, name string) error {
	if err := s.service.DeleteFolder(ctx, s.session, name); err != nil {
		log.Error().Err(err).Str("folder", name).Msg("Failed to delete folder")
		return err
	}
	s.reloadFolders(ctx)
	return nil
}

func (s *State) reloadFolders(ctx context.Context) {
	if err := s.LoadFolders(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to reload folders")
	}
}

// DeletePhoto removes a photo's record and media. The folder's live
// subscription emits the reduced list on its own; callers without one must
// refresh explicitly.
func (s *State) DeletePhoto(ctx context.Context, folder, photoID, imageURL string) error {
	return s.service.DeletePhoto(ctx, s.session, folder, photoID, imageURL)
}

// UpdatePhoto writes the partial-field update and, on success, patches the
// matching in-memory record in place instead of re-fetching the folder.
// Exactly the listed fields change; concurrent updates to the same id are
// last-writer-wins.
func (s *State) UpdatePhoto(ctx context.Context, params domain.UpdatePhotoParams) error {
	params.Tags = cleanTags(params.Tags)

	if err := s.service.UpdatePhoto(ctx, s.session, params); err != nil {
		log.Error().Err(err).Str("photo", params.PhotoID).Msg("Failed to update photo")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.photos.Get()
	patched := make([]domain.Photo, len(current))
	for i, photo := range current {
		if photo.ID == params.PhotoID {
			photo.Comment = params.Comment
			photo.Tags = params.Tags
			photo.Name = params.Name
			photo.Country = params.Country
			photo.Store = params.Store
			photo.Price = params.Price
			photo.Rating = params.Rating
		}
		patched[i] = photo
	}
	s.photos.Set(patched)
	s.recomputeFilteredLocked()

	return nil
}

// UploadPhoto starts the optimistic upload flow: a placeholder entry with a
// local file URL appears at the head of the photo list immediately, the
// binary goes to the media service, and the catalog record is written once
// the upload reports a stored URL. On any failure the placeholder is marked
// failed and stays visible so the user can retry.
func (s *State) UploadPhoto(localPath, folder string) {
	placeholder := domain.Photo{
		ID:          uuid.NewString(),
		ImageURL:    "file://" + localPath,
		Folder:      folder,
		CreatedAt:   time.Now().UnixMilli(),
		IsUploading: true,
	}

	s.mu.Lock()
	s.photos.Set(append([]domain.Photo{placeholder}, s.photos.Get()...))
	s.recomputeFilteredLocked()
	s.mu.Unlock()

	go s.runUpload(localPath, folder, placeholder.ImageURL)
}

func (s *State) runUpload(localPath, folder, placeholderURL string) {
	imageURL, err := s.service.UploadMedia(s.ctx, localPath)
	if err != nil {
		log.Error().Err(err).Str("path", localPath).Msg("Media upload failed")
		s.markUploadFailed(placeholderURL)
		return
	}

	if _, err := s.service.SavePhoto(s.ctx, s.session, folder, imageURL); err != nil {
		log.Error().Err(err).Str("url", imageURL).Msg("Failed to save photo record")
		s.markUploadFailed(placeholderURL)
		return
	}

	// Swap the local URL for the stored one. The uploading flag is left to
	// the live subscription: its next snapshot replaces the placeholder
	// with the persisted record.
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.photos.Get()
	patched := make([]domain.Photo, len(current))
	for i, photo := range current {
		if photo.ImageURL == placeholderURL {
			photo.ImageURL = imageURL
		}
		patched[i] = photo
	}
	s.photos.Set(patched)
	s.recomputeFilteredLocked()
}

func (s *State) markUploadFailed(placeholderURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.photos.Get()
	patched := make([]domain.Photo, len(current))
	for i, photo := range current {
		if photo.ImageURL == placeholderURL {
			photo.IsUploading = false
			photo.UploadFailed = true
		}
		patched[i] = photo
	}
	s.photos.Set(patched)
	s.recomputeFilteredLocked()
}

// LoadFolderCounts issues one count query per known folder and merges
// results into the counts map as each arrives. The map is complete once
// every folder has reported; partial maps are valid intermediate states.
func (s *State) LoadFolderCounts(ctx context.Context) {
	for _, folder := range s.folders.Get() {
		go func(folder string) {
			count, err := s.service.CountPhotos(ctx, s.session, folder)
			if err != nil {
				log.Error().Err(err).Str("folder", folder).Msg("Failed to count photos")
				return
			}

			s.mu.Lock()
			defer s.mu.Unlock()

			counts := s.folderCounts.Get()
			merged := make(map[string]int64, len(counts)+1)
			for name, n := range counts {
				merged[name] = n
			}
			merged[folder] = count
			s.folderCounts.Set(merged)
		}(folder)
	}
}

// Session returns the session this state belongs to.
func (s *State) Session() domain.Session { return s.session }

// Folders returns the current folder-name snapshot.
func (s *State) Folders() []string { return s.folders.Get() }

// Photos returns the current folder's photo snapshot.
func (s *State) Photos() []domain.Photo { return s.photos.Get() }

// FilteredPhotos returns the derived filtered-and-sorted view.
func (s *State) FilteredPhotos() []domain.Photo { return s.filteredPhotos.Get() }

// AllPhotos returns the search corpus snapshot.
func (s *State) AllPhotos() []domain.Photo { return s.allPhotos.Get() }

// SearchResults returns the current search result snapshot.
func (s *State) SearchResults() []domain.Photo { return s.searchResults.Get() }

// FolderCounts returns the folder-to-photo-count map gathered so far.
func (s *State) FolderCounts() map[string]int64 { return s.folderCounts.Get() }

// SearchQuery returns the last stored search query.
func (s *State) SearchQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchQuery
}

// SubscribeFolders streams folder-list snapshots, primed with the current one.
func (s *State) SubscribeFolders() (<-chan []string, func()) {
	return s.folders.Subscribe()
}

// SubscribeFilteredPhotos streams derived-view snapshots, primed with the
// current one.
func (s *State) SubscribeFilteredPhotos() (<-chan []domain.Photo, func()) {
	return s.filteredPhotos.Subscribe()
}

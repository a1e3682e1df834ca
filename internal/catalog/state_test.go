package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/swasher/productus/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscription[T any] struct {
	updates chan T
	errs    chan error

	mu     sync.Mutex
	closed bool
}

func newFakeSubscription[T any]() *fakeSubscription[T] {
	return &fakeSubscription[T]{
		updates: make(chan T, 8),
		errs:    make(chan error, 1),
	}
}

func (f *fakeSubscription[T]) Updates() <-chan T { return f.updates }

func (f *fakeSubscription[T]) Err() <-chan error { return f.errs }

func (f *fakeSubscription[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.updates)
	}
}

func (f *fakeSubscription[T]) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSubscription[T]) emit(snapshot T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.updates <- snapshot
	}
}

// fakeCatalogService serves canned data and hands out controllable
// subscriptions so tests can drive snapshot delivery by hand.
type fakeCatalogService struct {
	mu sync.Mutex

	folders []string
	photos  map[string][]domain.Photo

	folderSub *fakeSubscription[[]string]
	allSub    *fakeSubscription[[]domain.Photo]
	photoSubs map[string][]*fakeSubscription[[]domain.Photo]

	uploadURL  string
	uploadErr  error
	saveErr    error
	uploadGate chan struct{}

	savedPhotos []domain.Photo
	updated     []domain.UpdatePhotoParams
	deleted     []string
}

func newFakeCatalogService() *fakeCatalogService {
	return &fakeCatalogService{
		photos:    map[string][]domain.Photo{},
		folderSub: newFakeSubscription[[]string](),
		allSub:    newFakeSubscription[[]domain.Photo](),
		photoSubs: map[string][]*fakeSubscription[[]domain.Photo]{},
	}
}

func (f *fakeCatalogService) GetFolders(ctx context.Context, sess domain.Session) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.folders, nil
}

func (f *fakeCatalogService) ObserveFolders(ctx context.Context, sess domain.Session) (domain.FolderListSubscription, error) {
	return f.folderSub, nil
}

func (f *fakeCatalogService) CreateFolder(ctx context.Context, sess domain.Session, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders = append(f.folders, name)
	return nil
}

func (f *fakeCatalogService) RenameFolder(ctx context.Context, sess domain.Session, oldName, newName string) error {
	return nil
}

func (f *fakeCatalogService) DeleteFolder(ctx context.Context, sess domain.Session, name string) error {
	return nil
}

func (f *fakeCatalogService) CountPhotos(ctx context.Context, sess domain.Session, folder string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.photos[folder])), nil
}

func (f *fakeCatalogService) GetPhotos(ctx context.Context, sess domain.Session, folder string) ([]domain.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.photos[folder], nil
}

func (f *fakeCatalogService) ObservePhotos(ctx context.Context, sess domain.Session, folder string) (domain.PhotoListSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := newFakeSubscription[[]domain.Photo]()
	f.photoSubs[folder] = append(f.photoSubs[folder], sub)
	return sub, nil
}

func (f *fakeCatalogService) ObserveAllPhotos(ctx context.Context, sess domain.Session) (domain.PhotoListSubscription, error) {
	return f.allSub, nil
}

func (f *fakeCatalogService) UploadMedia(ctx context.Context, localPath string) (string, error) {
	if f.uploadGate != nil {
		<-f.uploadGate
	}
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadURL, nil
}

func (f *fakeCatalogService) SavePhoto(ctx context.Context, sess domain.Session, folder, imageURL string) (domain.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return domain.Photo{}, f.saveErr
	}
	photo := domain.Photo{ID: "saved", ImageURL: imageURL, Folder: folder}
	f.savedPhotos = append(f.savedPhotos, photo)
	return photo, nil
}

func (f *fakeCatalogService) UpdatePhoto(ctx context.Context, sess domain.Session, params domain.UpdatePhotoParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, params)
	return nil
}

func (f *fakeCatalogService) DeletePhoto(ctx context.Context, sess domain.Session, folder, photoID, imageURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, folder+"/"+photoID)
	return nil
}

func (f *fakeCatalogService) subsFor(folder string) []*fakeSubscription[[]domain.Photo] {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := make([]*fakeSubscription[[]domain.Photo], len(f.photoSubs[folder]))
	copy(subs, f.photoSubs[folder])
	return subs
}

var stateSession = domain.Session{UserID: "u1", Email: "u1@example.com"}

func newTestState(t *testing.T, service *fakeCatalogService) *State {
	t.Helper()
	state := NewState(context.Background(), service, stateSession)
	t.Cleanup(state.Close)
	return state
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func TestFolderSnapshotsReachState(t *testing.T) {
	service := newFakeCatalogService()
	state := newTestState(t, service)

	service.folderSub.emit([]string{"trips", "receipts"})

	eventually(t, func() bool {
		return len(state.Folders()) == 2
	}, "folder snapshot never arrived")
	assert.Equal(t, []string{"trips", "receipts"}, state.Folders())

	// A later snapshot supersedes the earlier one wholesale.
	service.folderSub.emit([]string{"trips"})
	eventually(t, func() bool {
		return len(state.Folders()) == 1
	}, "superseding snapshot never arrived")
}

func TestObservePhotosIsIdempotent(t *testing.T) {
	service := newFakeCatalogService()
	state := newTestState(t, service)

	require.NoError(t, state.ObservePhotos("trips"))
	require.NoError(t, state.ObservePhotos("trips"))

	assert.Len(t, service.subsFor("trips"), 1)
}

func TestObservePhotosSwitchClosesPrevious(t *testing.T) {
	service := newFakeCatalogService()
	state := newTestState(t, service)

	require.NoError(t, state.ObservePhotos("trips"))
	require.NoError(t, state.ObservePhotos("receipts"))

	tripsSubs := service.subsFor("trips")
	require.Len(t, tripsSubs, 1)
	assert.True(t, tripsSubs[0].isClosed())

	// A stale emission from the old folder must not land.
	receiptsSubs := service.subsFor("receipts")
	require.Len(t, receiptsSubs, 1)
	receiptsSubs[0].emit([]domain.Photo{{ID: "r1", Folder: "receipts"}})

	eventually(t, func() bool {
		photos := state.Photos()
		return len(photos) == 1 && photos[0].ID == "r1"
	}, "receipts snapshot never arrived")
}

func TestFilteredViewSortsAndFilters(t *testing.T) {
	service := newFakeCatalogService()
	state := newTestState(t, service)

	require.NoError(t, state.ObservePhotos("trips"))

	subs := service.subsFor("trips")
	require.Len(t, subs, 1)
	subs[0].emit([]domain.Photo{
		{ID: "old", Folder: "trips", CreatedAt: 100, Tags: []string{"wine"}},
		{ID: "new", Folder: "trips", CreatedAt: 300},
		{ID: "mid", Folder: "trips", CreatedAt: 200, Tags: []string{"wine", "fr"}},
	})

	eventually(t, func() bool {
		return len(state.FilteredPhotos()) == 3
	}, "photo snapshot never arrived")

	view := state.FilteredPhotos()
	assert.Equal(t, []string{"new", "mid", "old"}, []string{view[0].ID, view[1].ID, view[2].ID})

	state.SetFilterTag("wine")
	view = state.FilteredPhotos()
	require.Len(t, view, 2)
	assert.Equal(t, "mid", view[0].ID)
	assert.Equal(t, "old", view[1].ID)

	state.SetFilterTag("")
	assert.Len(t, state.FilteredPhotos(), 3)
}

func TestSearchScansResidentCorpus(t *testing.T) {
	service := newFakeCatalogService()
	state := newTestState(t, service)

	service.allSub.emit([]domain.Photo{
		{ID: "p1", Name: "Rioja Reserva"},
		{ID: "p2", Comment: "great rioja from the trip"},
		{ID: "p3", Tags: []string{"rioja", "red"}},
		{ID: "p4", Name: "Chianti"},
	})

	eventually(t, func() bool {
		return len(state.AllPhotos()) == 4
	}, "corpus snapshot never arrived")

	state.SearchPhotos("RIOJA")
	results := state.SearchResults()
	require.Len(t, results, 3)
	for _, photo := range results {
		assert.NotEqual(t, "p4", photo.ID)
	}

	state.SearchPhotos("   ")
	assert.Empty(t, state.SearchResults())

	state.SearchPhotos("chianti")
	require.Len(t, state.SearchResults(), 1)

	state.ClearSearchResults()
	assert.Empty(t, state.SearchResults())
	assert.Equal(t, "chianti", state.SearchQuery())
}

func TestUpdatePhotoPatchesInPlace(t *testing.T) {
	service := newFakeCatalogService()
	state := newTestState(t, service)

	require.NoError(t, state.ObservePhotos("trips"))
	subs := service.subsFor("trips")
	require.Len(t, subs, 1)
	subs[0].emit([]domain.Photo{
		{ID: "p1", Folder: "trips", Name: "before", Rating: 1},
		{ID: "p2", Folder: "trips", Name: "untouched"},
	})

	eventually(t, func() bool {
		return len(state.Photos()) == 2
	}, "photo snapshot never arrived")

	err := state.UpdatePhoto(context.Background(), domain.UpdatePhotoParams{
		Folder:  "trips",
		PhotoID: "p1",
		Name:    "after",
		Comment: "tasty",
		Tags:    []string{" wine ", "", "fr"},
		Country: "France",
		Store:   "Le Cave",
		Price:   12.5,
		Rating:  4,
	})
	require.NoError(t, err)

	require.Len(t, service.updated, 1)
	assert.Equal(t, []string{"wine", "fr"}, service.updated[0].Tags)

	var patched domain.Photo
	for _, photo := range state.Photos() {
		if photo.ID == "p1" {
			patched = photo
		}
	}
	assert.Equal(t, "after", patched.Name)
	assert.Equal(t, "tasty", patched.Comment)
	assert.Equal(t, 4, patched.Rating)
	assert.Equal(t, 12.5, patched.Price)

	for _, photo := range state.Photos() {
		if photo.ID == "p2" {
			assert.Equal(t, "untouched", photo.Name)
		}
	}
}

func TestUploadPhotoOptimisticFlow(t *testing.T) {
	service := newFakeCatalogService()
	service.uploadURL = "https://res.example.com/upload/productus/done.jpg"
	service.uploadGate = make(chan struct{})
	state := newTestState(t, service)

	state.UploadPhoto("/tmp/pic.jpg", "trips")

	// Before any network completion the placeholder is already visible.
	photos := state.Photos()
	require.Len(t, photos, 1)
	assert.True(t, photos[0].IsUploading)
	assert.Equal(t, "file:///tmp/pic.jpg", photos[0].ImageURL)
	assert.Equal(t, "trips", photos[0].Folder)

	close(service.uploadGate)

	// The placeholder URL is swapped for the stored one once the record
	// is saved.
	eventually(t, func() bool {
		current := state.Photos()
		return len(current) == 1 && strings.HasPrefix(current[0].ImageURL, "https://")
	}, "upload never completed")

	require.Len(t, service.savedPhotos, 1)
	assert.Equal(t, "trips", service.savedPhotos[0].Folder)
}

func TestUploadPhotoFailureMarksEntry(t *testing.T) {
	service := newFakeCatalogService()
	service.uploadErr = errors.New("network down")
	state := newTestState(t, service)

	state.UploadPhoto("/tmp/pic.jpg", "trips")

	eventually(t, func() bool {
		photos := state.Photos()
		return len(photos) == 1 && photos[0].UploadFailed
	}, "failed upload never marked")

	photos := state.Photos()
	assert.False(t, photos[0].IsUploading)
	// The entry stays visible with its local image.
	assert.Equal(t, "file:///tmp/pic.jpg", photos[0].ImageURL)
	assert.Empty(t, service.savedPhotos)
}

func TestUploadPlaceholderYieldsToSnapshot(t *testing.T) {
	service := newFakeCatalogService()
	service.uploadURL = "https://res.example.com/upload/productus/done.jpg"
	state := newTestState(t, service)

	require.NoError(t, state.ObservePhotos("trips"))
	state.UploadPhoto("/tmp/pic.jpg", "trips")

	eventually(t, func() bool {
		return len(service.savedPhotos) == 1
	}, "upload never completed")

	// The live subscription's next snapshot replaces the optimistic list.
	subs := service.subsFor("trips")
	require.Len(t, subs, 1)
	subs[0].emit([]domain.Photo{{ID: "done", Folder: "trips", ImageURL: service.uploadURL}})

	eventually(t, func() bool {
		photos := state.Photos()
		return len(photos) == 1 && photos[0].ID == "done" && !photos[0].IsUploading
	}, "snapshot never superseded the placeholder")
}

func TestSubscribeFilteredPhotosIsPrimed(t *testing.T) {
	service := newFakeCatalogService()
	state := newTestState(t, service)

	updates, cancel := state.SubscribeFilteredPhotos()
	defer cancel()

	select {
	case snapshot := <-updates:
		assert.Empty(t, snapshot)
	case <-time.After(time.Second):
		t.Fatal("subscription was not primed with the current snapshot")
	}
}

func TestLoadFolderCounts(t *testing.T) {
	service := newFakeCatalogService()
	service.photos["trips"] = []domain.Photo{{ID: "p1"}, {ID: "p2"}}
	service.photos["receipts"] = []domain.Photo{{ID: "p3"}}
	state := newTestState(t, service)

	service.folderSub.emit([]string{"trips", "receipts"})
	eventually(t, func() bool {
		return len(state.Folders()) == 2
	}, "folder snapshot never arrived")

	state.LoadFolderCounts(context.Background())

	eventually(t, func() bool {
		counts := state.FolderCounts()
		return counts["trips"] == 2 && counts["receipts"] == 1
	}, "counts never converged")
}

func TestRegistryReusesAndEvictsState(t *testing.T) {
	service := newFakeCatalogService()
	registry := NewRegistry(context.Background(), service)
	defer registry.Close()

	first := registry.ForSession(stateSession)
	second := registry.ForSession(stateSession)
	assert.Same(t, first, second)

	registry.Evict(stateSession.UserID)
	third := registry.ForSession(stateSession)
	assert.NotSame(t, first, third)
}

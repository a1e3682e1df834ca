package controllers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/swasher/productus/internal/catalog"
	"github.com/swasher/productus/internal/domain"
	"github.com/swasher/productus/internal/middlewares"
	"github.com/swasher/productus/pkg/mediaurl"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
)

// CatalogController exposes the per-user catalog state and its operations
// over HTTP. It is a thin shell: all state lives in the catalog registry.
type CatalogController struct {
	registry *catalog.Registry
	service  domain.CatalogService
	tempDir  string
}

type CatalogControllerDependencies struct {
	Registry *catalog.Registry
	Service  domain.CatalogService

	// TempDir receives uploaded files before they go to the media service.
	// Defaults to the OS temp directory.
	TempDir string
}

func NewCatalogController(deps CatalogControllerDependencies) *CatalogController {
	tempDir := deps.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	return &CatalogController{
		registry: deps.Registry,
		service:  deps.Service,
		tempDir:  tempDir,
	}
}

func (c *CatalogController) state(ctx fiber.Ctx) *catalog.State {
	return c.registry.ForSession(middlewares.SessionFromCtx(ctx))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotSignedIn):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrPhotoNotFound), errors.Is(err, domain.ErrFolderNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func (c *CatalogController) GetFolders(ctx fiber.Ctx) error {
	sess := middlewares.SessionFromCtx(ctx)

	folders, err := c.service.GetFolders(ctx.RequestCtx(), sess)
	if err != nil {
		return fiber.NewError(statusForError(err), "Failed to list folders")
	}

	return ctx.JSON(fiber.Map{"folders": folders})
}

type createFolderRequest struct {
	Name string `json:"name"`
}

func (c *CatalogController) CreateFolder(ctx fiber.Ctx) error {
	var req createFolderRequest
	if err := ctx.Bind().Body(&req); err != nil || req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Folder name required")
	}

	if err := c.state(ctx).CreateFolder(ctx.RequestCtx(), req.Name); err != nil {
		return fiber.NewError(statusForError(err), "Failed to create folder")
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"name": req.Name})
}

type renameFolderRequest struct {
	NewName string `json:"new_name"`
}

func (c *CatalogController) RenameFolder(ctx fiber.Ctx) error {
	oldName := ctx.Params("folder")

	var req renameFolderRequest
	if err := ctx.Bind().Body(&req); err != nil || req.NewName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "New folder name required")
	}

	if err := c.state(ctx).RenameFolder(ctx.RequestCtx(), oldName, req.NewName); err != nil {
		return fiber.NewError(statusForError(err), "Failed to rename folder")
	}

	return ctx.JSON(fiber.Map{"name": req.NewName})
}

func (c *CatalogController) DeleteFolder(ctx fiber.Ctx) error {
	name := ctx.Params("folder")

	if err := c.state(ctx).DeleteFolder(ctx.RequestCtx(), name); err != nil {
		return fiber.NewError(statusForError(err), "Failed to delete folder")
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *CatalogController) GetFolderCounts(ctx fiber.Ctx) error {
	sess := middlewares.SessionFromCtx(ctx)

	folders, err := c.service.GetFolders(ctx.RequestCtx(), sess)
	if err != nil {
		return fiber.NewError(statusForError(err), "Failed to list folders")
	}

	counted := make([]domain.Folder, 0, len(folders))
	for _, folder := range folders {
		count, err := c.service.CountPhotos(ctx.RequestCtx(), sess, folder)
		if err != nil {
			log.Warn().Err(err).Str("folder", folder).Msg("Failed to count photos")
			continue
		}
		counted = append(counted, domain.Folder{Name: folder, PhotoCount: count})
	}

	return ctx.JSON(fiber.Map{"folders": counted})
}

func (c *CatalogController) GetPhotos(ctx fiber.Ctx) error {
	sess := middlewares.SessionFromCtx(ctx)
	folder := ctx.Params("folder")

	// Point the live view at this folder so stream consumers follow along.
	if err := c.state(ctx).ObservePhotos(folder); err != nil {
		log.Warn().Err(err).Str("folder", folder).Msg("Failed to start live photo view")
	}

	photos, err := c.service.GetPhotos(ctx.RequestCtx(), sess, folder)
	if err != nil {
		return fiber.NewError(statusForError(err), "Failed to list photos")
	}

	return ctx.JSON(fiber.Map{"photos": photos})
}

func (c *CatalogController) UploadPhoto(ctx fiber.Ctx) error {
	folder := ctx.Params("folder")

	file, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Image file required")
	}

	localPath := filepath.Join(c.tempDir, fmt.Sprintf("upload_%s%s", xid.New().String(), filepath.Ext(file.Filename)))
	if err := ctx.SaveFile(file, localPath); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to store upload")
	}

	// TODO: remove the temp file once the upload goroutine is done with it.
	c.state(ctx).UploadPhoto(localPath, folder)

	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "uploading"})
}

func (c *CatalogController) UpdatePhoto(ctx fiber.Ctx) error {
	var params domain.UpdatePhotoParams
	if err := ctx.Bind().Body(&params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	params.Folder = ctx.Params("folder")
	params.PhotoID = ctx.Params("photoID")

	if err := c.state(ctx).UpdatePhoto(ctx.RequestCtx(), params); err != nil {
		return fiber.NewError(statusForError(err), "Failed to update photo")
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *CatalogController) DeletePhoto(ctx fiber.Ctx) error {
	folder := ctx.Params("folder")
	photoID := ctx.Params("photoID")
	imageURL := ctx.Query("image_url")

	if err := c.state(ctx).DeletePhoto(ctx.RequestCtx(), folder, photoID, imageURL); err != nil {
		return fiber.NewError(statusForError(err), "Failed to delete photo")
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *CatalogController) SearchPhotos(ctx fiber.Ctx) error {
	state := c.state(ctx)
	query := ctx.Query("q")

	state.SearchPhotos(query)

	return ctx.JSON(fiber.Map{
		"query":   query,
		"results": state.SearchResults(),
	})
}

// GetThumbnailURL derives the resized variant of a stored image URL.
func (c *CatalogController) GetThumbnailURL(ctx fiber.Ctx) error {
	imageURL := ctx.Query("url")
	if imageURL == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Image URL required")
	}

	width, err := strconv.Atoi(ctx.Query("w", "200"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid width")
	}
	height, err := strconv.Atoi(ctx.Query("h", "200"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid height")
	}

	return ctx.JSON(fiber.Map{
		"thumbnail_url": mediaurl.ThumbnailURL(imageURL, width, height),
	})
}

// StreamCatalog pushes live folder and filtered-photo snapshots to the
// client as server-sent events. Each event carries a full snapshot.
func (c *CatalogController) StreamCatalog(ctx fiber.Ctx) error {
	state := c.state(ctx)

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")

	folders, cancelFolders := state.SubscribeFolders()
	photos, cancelPhotos := state.SubscribeFilteredPhotos()

	ctx.RequestCtx().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancelFolders()
		defer cancelPhotos()

		for {
			select {
			case snapshot, ok := <-folders:
				if !ok {
					return
				}
				if err := writeEvent(w, "folders", snapshot); err != nil {
					return
				}
			case snapshot, ok := <-photos:
				if !ok {
					return
				}
				if err := writeEvent(w, "photos", snapshot); err != nil {
					return
				}
			}
		}
	})

	return nil
}

func writeEvent(w *bufio.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}

// SignOut drops the user's in-memory state. The identity provider owns the
// actual token lifecycle.
func (c *CatalogController) SignOut(ctx fiber.Ctx) error {
	sess := middlewares.SessionFromCtx(ctx)
	c.registry.Evict(sess.UserID)
	return ctx.SendStatus(fiber.StatusNoContent)
}

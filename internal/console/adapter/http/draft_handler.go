package http

import (
	"strconv"

	"cowork-console/internal/console/usecase"
	apperrors "cowork-console/internal/shared/errors"
	"cowork-console/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// DraftHandler exposes the draft record controller: session-scoped editing
// with media-list invariants and the upload-in-flight submit gate.
type DraftHandler struct {
	drafts *usecase.DraftManager
	log    logger.Logger
}

// NewDraftHandler creates the draft session handler.
func NewDraftHandler(drafts *usecase.DraftManager, log logger.Logger) *DraftHandler {
	return &DraftHandler{drafts: drafts, log: log.WithComponent("draft-handler")}
}

// RegisterRoutes registers the draft session endpoints.
func (h *DraftHandler) RegisterRoutes(router fiber.Router) {
	group := router.Group("/drafts")
	group.Post("/", h.openDraft)
	group.Get("/:id", h.getDraft)
	group.Put("/:id/fields", h.setField)
	group.Post("/:id/media/:list", h.attachMedia)
	group.Delete("/:id/media/:list/:index", h.removeMedia)
	group.Put("/:id/media/:list/primary", h.setPrimary)
	group.Post("/:id/submit", h.submitDraft)
	group.Delete("/:id", h.closeDraft)
}

type openDraftPayload struct {
	Collection string `json:"collection"`
	ItemID     string `json:"itemId"`
}

func (h *DraftHandler) openDraft(c *fiber.Ctx) error {
	var payload openDraftPayload
	if err := c.BodyParser(&payload); err != nil {
		return writeError(c, apperrors.NewValidationError("malformed draft payload").WithCause(err))
	}
	if payload.Collection == "" {
		return writeError(c, apperrors.NewValidationError("collection is required"))
	}

	ctx := withCollection(c.UserContext(), payload.Collection)
	session, err := h.drafts.Open(ctx, payload.Collection, payload.ItemID)
	if err != nil {
		return writeError(c, err)
	}

	h.log.WithContext(ctx).Infof("opened draft %s on %s", session.ID(), payload.Collection)
	return c.Status(fiber.StatusCreated).JSON(session.View())
}

func (h *DraftHandler) getDraft(c *fiber.Ctx) error {
	session, ok := h.drafts.Get(c.Params("id"))
	if !ok {
		return writeError(c, apperrors.NewNotFoundError("draft session"))
	}
	return c.JSON(session.View())
}

type setFieldPayload struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (h *DraftHandler) setField(c *fiber.Ctx) error {
	session, ok := h.drafts.Get(c.Params("id"))
	if !ok {
		return writeError(c, apperrors.NewNotFoundError("draft session"))
	}

	var payload setFieldPayload
	if err := c.BodyParser(&payload); err != nil {
		return writeError(c, apperrors.NewValidationError("malformed field payload").WithCause(err))
	}
	if err := session.SetField(payload.Name, payload.Value); err != nil {
		return writeError(c, err)
	}
	return c.JSON(session.View())
}

func (h *DraftHandler) attachMedia(c *fiber.Ctx) error {
	session, ok := h.drafts.Get(c.Params("id"))
	if !ok {
		return writeError(c, apperrors.NewNotFoundError("draft session"))
	}

	form, err := c.MultipartForm()
	if err != nil {
		return writeError(c, apperrors.NewValidationError("multipart form required").WithCause(err))
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return writeError(c, apperrors.NewValidationError(apperrors.ErrEmptyUploadBatch.Error()))
	}

	files, err := readFiles(headers)
	if err != nil {
		return writeError(c, apperrors.WrapError(err, "reading upload batch"))
	}

	refs, err := session.AttachMedia(c.UserContext(), c.Params("list"), files)
	if err != nil {
		return writeError(c, err)
	}

	h.log.WithContext(c.UserContext()).Infof("attached %d file(s) to draft %s", len(refs), session.ID())
	return c.Status(fiber.StatusCreated).JSON(session.View())
}

func (h *DraftHandler) removeMedia(c *fiber.Ctx) error {
	session, ok := h.drafts.Get(c.Params("id"))
	if !ok {
		return writeError(c, apperrors.NewNotFoundError("draft session"))
	}

	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return writeError(c, apperrors.NewValidationError("index must be an integer").WithCause(err))
	}
	session.RemoveMedia(c.Params("list"), index)
	return c.JSON(session.View())
}

type setPrimaryPayload struct {
	Index int `json:"index"`
}

func (h *DraftHandler) setPrimary(c *fiber.Ctx) error {
	session, ok := h.drafts.Get(c.Params("id"))
	if !ok {
		return writeError(c, apperrors.NewNotFoundError("draft session"))
	}

	var payload setPrimaryPayload
	if err := c.BodyParser(&payload); err != nil {
		return writeError(c, apperrors.NewValidationError("malformed primary payload").WithCause(err))
	}
	if err := session.SetPrimary(c.Params("list"), payload.Index); err != nil {
		return writeError(c, err)
	}
	return c.JSON(session.View())
}

func (h *DraftHandler) submitDraft(c *fiber.Ctx) error {
	id := c.Params("id")
	item, err := h.drafts.Submit(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}

	h.log.WithContext(c.UserContext()).Infof("submitted draft %s as item %s", id, item.ID)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"id": item.ID, "item": item})
}

func (h *DraftHandler) closeDraft(c *fiber.Ctx) error {
	h.drafts.Close(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}

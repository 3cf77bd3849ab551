package http

import (
	"context"
	"errors"

	"cowork-console/internal/console/domain/model"
	"cowork-console/internal/console/usecase"
	"cowork-console/internal/shared/contextkeys"
	apperrors "cowork-console/internal/shared/errors"
	"cowork-console/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// ItemHandler exposes collection listing and the synchronizer write path.
type ItemHandler struct {
	sync usecase.SyncUsecase
	log  logger.Logger
}

// NewItemHandler creates the collection item handler.
func NewItemHandler(syncUC usecase.SyncUsecase, log logger.Logger) *ItemHandler {
	return &ItemHandler{sync: syncUC, log: log.WithComponent("item-handler")}
}

// RegisterRoutes registers the collection endpoints.
func (h *ItemHandler) RegisterRoutes(router fiber.Router) {
	group := router.Group("/collections/:collection")
	group.Get("/items", h.listItems)
	group.Put("/items", h.upsertItem)
	group.Delete("/items/:id", h.deleteItem)
}

// itemPayload is the wire shape of one item.
type itemPayload struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

func (h *ItemHandler) listItems(c *fiber.Ctx) error {
	collection := c.Params("collection")
	ctx := withCollection(c.UserContext(), collection)

	items, err := h.sync.Snapshot(ctx, collection)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"collection": collection,
		"items":      items,
	})
}

func (h *ItemHandler) upsertItem(c *fiber.Ctx) error {
	collection := c.Params("collection")
	ctx := withCollection(c.UserContext(), collection)

	var payload itemPayload
	if err := c.BodyParser(&payload); err != nil {
		return writeError(c, apperrors.NewValidationError("malformed item payload").WithCause(err))
	}
	if len(payload.Fields) == 0 {
		return writeError(c, apperrors.NewValidationError("item fields are required"))
	}

	id, err := h.sync.Upsert(ctx, collection, model.Item{ID: payload.ID, Fields: payload.Fields})
	if err != nil {
		return writeError(c, err)
	}

	h.log.WithContext(ctx).Infof("upserted %s/%s", collection, id)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"id": id})
}

func (h *ItemHandler) deleteItem(c *fiber.Ctx) error {
	collection := c.Params("collection")
	ctx := withCollection(c.UserContext(), collection)

	if err := h.sync.Remove(ctx, collection, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func withCollection(ctx context.Context, collection string) context.Context {
	return context.WithValue(ctx, contextkeys.CollectionKey, collection)
}

// writeError converts domain errors into HTTP responses. Sentinels are
// matched with errors.Is so wrapped errors still map to the right status.
func writeError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.HTTPCode).JSON(appErr)
	}

	var verr *apperrors.ValidationErrors
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   string(apperrors.ErrorTypeValidation),
			"message": err.Error(),
			"fields":  verr.Fields(),
		})
	case errors.Is(err, apperrors.ErrCollectionUnknown),
		errors.Is(err, apperrors.ErrItemNotFound),
		errors.Is(err, apperrors.ErrUnknownMediaField):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   string(apperrors.ErrorTypeNotFound),
			"message": err.Error(),
		})
	case errors.Is(err, apperrors.ErrReadOnlyCollection):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   string(apperrors.ErrorTypeDomain),
			"message": err.Error(),
		})
	case errors.Is(err, apperrors.ErrUploadInFlight),
		errors.Is(err, apperrors.ErrDraftNotEditing):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   string(apperrors.ErrorTypeConflict),
			"message": err.Error(),
		})
	case errors.Is(err, apperrors.ErrInvalidIndex),
		errors.Is(err, apperrors.ErrEmptyUploadBatch):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   string(apperrors.ErrorTypeValidation),
			"message": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   string(apperrors.ErrorTypeInternal),
			"message": err.Error(),
		})
	}
}

package http

import (
	"io"
	"mime/multipart"

	"cowork-console/internal/console/domain/model"
	"cowork-console/internal/console/usecase"
	apperrors "cowork-console/internal/shared/errors"
	"cowork-console/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// UploadHandler exposes the batch media upload endpoint.
type UploadHandler struct {
	uploads usecase.UploadUsecase
	log     logger.Logger
}

// NewUploadHandler creates the media upload handler.
func NewUploadHandler(uploads usecase.UploadUsecase, log logger.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, log: log.WithComponent("upload-handler")}
}

// RegisterRoutes registers the upload endpoint.
func (h *UploadHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/uploads", h.uploadBatch)
}

func (h *UploadHandler) uploadBatch(c *fiber.Ctx) error {
	kind := model.MediaKind(c.Query("kind", string(model.MediaKindImage)))
	if kind != model.MediaKindImage && kind != model.MediaKindVideo {
		return writeError(c, apperrors.NewValidationError("kind must be image or video"))
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

	scope := "http/" + requestScope(c)
	refs, err := h.uploads.StoreAll(c.UserContext(), scope, kind, files)
	if err != nil {
		return writeError(c, err)
	}

	h.log.WithContext(c.UserContext()).Infof("uploaded %d %s file(s)", len(refs), kind)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"urls": refs})
}

func readFiles(headers []*multipart.FileHeader) ([]usecase.UploadFile, error) {
	files := make([]usecase.UploadFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, usecase.UploadFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func requestScope(c *fiber.Ctx) string {
	if rid, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok && rid != "" {
		return rid
	}
	return "anonymous"
}

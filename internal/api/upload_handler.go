package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/core"
	"audiostory-backend-go/internal/metrics"
)

// multipartOverhead allows for boundaries and the type field on top of the
// file itself.
const multipartOverhead = 1 << 20

// UploadHandler accepts admin media uploads.
type UploadHandler struct {
	uploads  core.UploadService
	maxBytes int64
	logger   *zap.Logger
}

// NewUploadHandler creates a new UploadHandler. maxBytes bounds the file size.
func NewUploadHandler(us core.UploadService, maxBytes int64, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{uploads: us, maxBytes: maxBytes, logger: logger}
}

// Upload handles POST /admin/upload with multipart fields "file" and "type".
// Multipart temp files are removed whatever the outcome.
func (h *UploadHandler) Upload(c *gin.Context) {
	limit := h.maxBytes + multipartOverhead
	if c.Request.ContentLength > limit {
		metrics.RecordUpload("unknown", "too_large")
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "File too large"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fileHeader, err := c.FormFile("file")
	if c.Request.MultipartForm != nil {
		defer func() { _ = c.Request.MultipartForm.RemoveAll() }()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.RecordUpload("unknown", "too_large")
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "File too large"})
			return
		}
		metrics.RecordUpload("unknown", "rejected")
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "No file uploaded"})
		return
	}

	var req UploadRequest
	if err := c.ShouldBind(&req); err != nil {
		metrics.RecordUpload("unknown", "rejected")
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid upload type", Details: "type must be 'cover' or 'audio'"})
		return
	}
	kind := core.UploadKind(req.Type)

	file, err := fileHeader.Open()
	if err != nil {
		metrics.RecordUpload(req.Type, "error")
		respondError(c, h.logger, err)
		return
	}
	defer file.Close()

	result, err := h.uploads.Upload(c.Request.Context(), core.UploadInput{
		Kind:     kind,
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Body:     file,
	})
	if err != nil {
		h.recordFailure(req.Type, err)
		if errors.Is(err, core.ErrUploadTypeMismatch) {
			msg := "Audio file required"
			if kind == core.UploadCover {
				msg = "Cover must be an image file"
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	metrics.RecordUpload(req.Type, "stored")
	c.JSON(http.StatusOK, result)
}

func (h *UploadHandler) recordFailure(kind string, err error) {
	switch {
	case errors.Is(err, core.ErrUploadTypeMismatch), errors.Is(err, core.ErrValidation):
		metrics.RecordUpload(kind, "rejected")
	case errors.Is(err, core.ErrUploadTooLarge):
		metrics.RecordUpload(kind, "too_large")
	default:
		metrics.RecordUpload(kind, "error")
	}
}

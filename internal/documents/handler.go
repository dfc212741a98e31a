package documents

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dochub-backend/internal/shared/server/middleware"
	"dochub-backend/internal/shared/server/respond"
	"dochub-backend/internal/shared/telemetry"
)

// multipartOverhead is the body allowance on top of the file size limit for
// boundaries and part headers.
const multipartOverhead = 64 << 10

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/search", h.search)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/file", h.download)
	rg.PUT("/documents/:id", h.update)
	rg.DELETE("/documents/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit := h.Svc.maxUpload()
	if c.Request.ContentLength > limit+multipartOverhead {
		writeError(c, "documents.upload", ErrTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			writeError(c, "documents.upload", ErrTooLarge)
			return
		}
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > limit {
		writeError(c, "documents.upload", ErrTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		respond.Internal(c, "documents.upload.read", err)
		return
	}

	doc, err := h.Svc.Upload(c.Request.Context(), userID, UploadInput{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeError(c, "documents.upload", err)
		return
	}
	c.Set("documentId", doc.ID)
	respond.Created(c, toDetail(doc))
}

func (h *Handler) list(c *gin.Context) {
	var q PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respond.Validation(c, err)
		return
	}
	page := NewPage(q.Skip, q.Limit)
	docs, total, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), page)
	if err != nil {
		writeError(c, "documents.list", err)
		return
	}
	respond.OK(c, toPage(docs, total, page))
}

func (h *Handler) search(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respond.Validation(c, err)
		return
	}
	page := NewPage(q.Skip, q.Limit)
	docs, total, err := h.Svc.Search(c.Request.Context(), middleware.UserIDFromContext(c), q.Q, page)
	if err != nil {
		writeError(c, "documents.search", err)
		return
	}
	respond.OK(c, toPage(docs, total, page))
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)
	doc, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, "documents.get", err)
		return
	}
	respond.OK(c, toDetail(doc))
}

func (h *Handler) download(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)
	doc, rc, err := h.Svc.Open(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, "documents.download", err)
		return
	}
	defer rc.Close()

	if err := respond.Attachment(c, storedName(doc.FileName), doc.ContentType, doc.SizeBytes, rc); err != nil {
		telemetry.Warn("document.download_interrupted", map[string]any{
			"document_id": doc.ID,
			"error":       err,
		})
	}
}

func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, err)
		return
	}
	doc, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), id, Patch{
		FileName: req.FileName,
		Content:  req.Content,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeError(c, "documents.update", err)
		return
	}
	respond.OK(c, toDetail(doc))
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		writeError(c, "documents.delete", err)
		return
	}
	respond.NoContent(c)
}

func writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
	case errors.Is(err, ErrNoFile):
		respond.Error(c, http.StatusNotFound, "not_found", "Original file not available", nil)
	case errors.Is(err, ErrEmptyFile):
		respond.Error(c, http.StatusBadRequest, "empty_file", "Uploaded file is empty", nil)
	case errors.Is(err, ErrUnsupportedType):
		respond.Error(c, http.StatusBadRequest, "unsupported_media_type", "Only PDF, DOCX and text files are supported", nil)
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "Uploaded file exceeds the size limit", nil)
	case errors.Is(err, ErrInvalidQuery):
		respond.Error(c, http.StatusBadRequest, "invalid_query", "Search query must not be empty", nil)
	case errors.Is(err, ErrOwnerGone):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Account no longer exists", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", err.Error(), nil)
	default:
		respond.Internal(c, op, err)
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

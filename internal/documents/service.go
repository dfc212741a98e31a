package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"dochub-backend/internal/extract"
	"dochub-backend/internal/shared/metrics"
	"dochub-backend/internal/shared/storage/object"
	"dochub-backend/internal/shared/telemetry"
	"dochub-backend/internal/shared/util"
)

const DefaultMaxUploadBytes = 10 << 20

// Service contains business logic for documents. Store is optional; when
// nil, original bytes are not retained.
type Service struct {
	Repo           Repo
	Store          object.ObjectStore
	MaxUploadBytes int64
}

// UploadInput is a fully read upload.
type UploadInput struct {
	FileName    string
	ContentType string
	Data        []byte
}

func (s *Service) maxUpload() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

// Upload extracts text from the payload and records the document. A failed
// extraction is logged and stored as empty content.
func (s *Service) Upload(ctx context.Context, ownerID string, in UploadInput) (Document, error) {
	name := strings.TrimSpace(in.FileName)
	if name == "" {
		return Document{}, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	if len(in.Data) == 0 {
		return Document{}, ErrEmptyFile
	}
	size := int64(len(in.Data))
	if size > s.maxUpload() {
		return Document{}, ErrTooLarge
	}
	contentType := ResolveContentType(name, in.ContentType, in.Data)
	if !Supported(name, contentType) {
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	id := uuid.NewString()
	res := extract.Extract(name, in.Data)
	if res.Err != nil {
		metrics.IncExtractionFailure(string(res.Format))
		telemetry.Warn("document.extract_failed", map[string]any{
			"document_id": id,
			"owner_id":    ownerID,
			"format":      string(res.Format),
			"error":       res.Err,
		})
	}

	var storageKey string
	if s.Store != nil {
		key, err := s.Store.Save(ctx, ownerID, storedName(name), contentType, bytes.NewReader(in.Data), size)
		if err != nil {
			return Document{}, fmt.Errorf("store original: %w", err)
		}
		storageKey = key
	}

	doc, err := s.Repo.Create(ctx, Document{
		ID:          id,
		OwnerID:     ownerID,
		FileName:    name,
		ContentType: contentType,
		SizeBytes:   size,
		Content:     res.Text,
		StorageKey:  storageKey,
		IsActive:    true,
	})
	if err != nil {
		s.removeObject(storageKey)
		return Document{}, err
	}
	metrics.ObserveUpload(size)
	return doc, nil
}

func (s *Service) Get(ctx context.Context, ownerID, documentID string) (Document, error) {
	if !validID(documentID) {
		return Document{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, ownerID, documentID)
}

func (s *Service) List(ctx context.Context, ownerID string, page Page) ([]Document, int, error) {
	return s.Repo.List(ctx, ownerID, page)
}

// Search fails with ErrInvalidQuery for blank queries.
func (s *Service) Search(ctx context.Context, ownerID, query string, page Page) ([]Document, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, ErrInvalidQuery
	}
	return s.Repo.Search(ctx, ownerID, query, page)
}

func (s *Service) Update(ctx context.Context, ownerID, documentID string, patch Patch) (Document, error) {
	if !validID(documentID) {
		return Document{}, ErrNotFound
	}
	if patch.FileName != nil {
		name := strings.TrimSpace(*patch.FileName)
		if name == "" {
			return Document{}, fmt.Errorf("%w: filename must not be empty", ErrInvalidInput)
		}
		patch.FileName = &name
	}
	if patch.Content != nil {
		content := extract.Sanitize(*patch.Content)
		patch.Content = &content
	}
	if patch.empty() {
		return s.Repo.GetByID(ctx, ownerID, documentID)
	}
	return s.Repo.Update(ctx, ownerID, documentID, patch)
}

// Delete removes the document, then its stored original on a best-effort basis.
func (s *Service) Delete(ctx context.Context, ownerID, documentID string) error {
	if !validID(documentID) {
		return ErrNotFound
	}
	doc, err := s.Repo.Delete(ctx, ownerID, documentID)
	if err != nil {
		return err
	}
	s.removeObject(doc.StorageKey)
	return nil
}

// Open returns the document and a reader over its original bytes. The
// caller closes the reader.
func (s *Service) Open(ctx context.Context, ownerID, documentID string) (Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, ownerID, documentID)
	if err != nil {
		return Document{}, nil, err
	}
	if s.Store == nil || doc.StorageKey == "" {
		return Document{}, nil, ErrNoFile
	}
	rc, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Document{}, nil, ErrNoFile
		}
		return Document{}, nil, err
	}
	return doc, rc, nil
}

func (s *Service) removeObject(storageKey string) {
	if s.Store == nil || storageKey == "" {
		return
	}
	if err := s.Store.Delete(context.Background(), storageKey); err != nil {
		telemetry.Warn("document.object_delete_failed", map[string]any{
			"storage_key": storageKey,
			"error":       err,
		})
	}
}

func storedName(name string) string {
	if safe, err := util.SanitizeFileName(name); err == nil {
		return safe
	}
	return "upload"
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

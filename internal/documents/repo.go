package documents

import "context"

// Repo persists documents. Every lookup is filtered by owner; a document
// owned by someone else is reported as ErrNotFound.
type Repo interface {
	Create(ctx context.Context, doc Document) (Document, error)
	GetByID(ctx context.Context, ownerID, documentID string) (Document, error)
	List(ctx context.Context, ownerID string, page Page) ([]Document, int, error)
	// Search matches query case-insensitively against filename or content.
	Search(ctx context.Context, ownerID, query string, page Page) ([]Document, int, error)
	Update(ctx context.Context, ownerID, documentID string, patch Patch) (Document, error)
	// Delete removes the document and returns the removed row.
	Delete(ctx context.Context, ownerID, documentID string) (Document, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int, error)
}

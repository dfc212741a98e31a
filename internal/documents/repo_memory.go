package documents

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Document // ownerID -> documents in insertion order
	gone map[string]struct{}   // owners removed through DeleteByOwner
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]Document),
		gone: make(map[string]struct{}),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.gone[doc.OwnerID]; ok {
		return Document{}, ErrOwnerGone
	}
	now := r.now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	r.data[doc.OwnerID] = append(r.data[doc.OwnerID], doc)
	return doc, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, ownerID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexLocked(ownerID, documentID); i >= 0 {
		return r.data[ownerID][i], nil
	}
	return Document{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context, ownerID string, page Page) ([]Document, int, error) {
	return r.filter(ctx, ownerID, page, func(Document) bool { return true })
}

func (r *MemoryRepo) Search(ctx context.Context, ownerID, query string, page Page) ([]Document, int, error) {
	needle := strings.ToLower(query)
	return r.filter(ctx, ownerID, page, func(d Document) bool {
		return strings.Contains(strings.ToLower(d.FileName), needle) ||
			strings.Contains(strings.ToLower(d.Content), needle)
	})
}

func (r *MemoryRepo) Update(ctx context.Context, ownerID, documentID string, patch Patch) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(ownerID, documentID)
	if i < 0 {
		return Document{}, ErrNotFound
	}
	doc := r.data[ownerID][i]
	if patch.FileName != nil {
		doc.FileName = *patch.FileName
	}
	if patch.Content != nil {
		doc.Content = *patch.Content
	}
	if patch.IsActive != nil {
		doc.IsActive = *patch.IsActive
	}
	doc.UpdatedAt = r.now()
	r.data[ownerID][i] = doc
	return doc, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, ownerID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(ownerID, documentID)
	if i < 0 {
		return Document{}, ErrNotFound
	}
	docs := r.data[ownerID]
	doc := docs[i]
	r.data[ownerID] = append(docs[:i:i], docs[i+1:]...)
	return doc, nil
}

// DeleteByOwner removes the owner's documents. Later Create calls for the
// same owner fail with ErrOwnerGone, as the foreign key does in Postgres.
func (r *MemoryRepo) DeleteByOwner(ctx context.Context, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.data[ownerID])
	delete(r.data, ownerID)
	r.gone[ownerID] = struct{}{}
	return n, nil
}

// filter returns the matching page newest-first plus the total match count.
func (r *MemoryRepo) filter(ctx context.Context, ownerID string, page Page, match func(Document) bool) ([]Document, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := r.data[ownerID]
	var matched []Document
	for i := len(docs) - 1; i >= 0; i-- {
		if match(docs[i]) {
			matched = append(matched, docs[i])
		}
	}
	total := len(matched)
	if page.Skip >= total {
		return []Document{}, total, nil
	}
	end := page.Skip + page.Limit
	if end > total {
		end = total
	}
	out := make([]Document, end-page.Skip)
	copy(out, matched[page.Skip:end])
	return out, total, nil
}

func (r *MemoryRepo) indexLocked(ownerID, documentID string) int {
	docs := r.data[ownerID]
	for i := range docs {
		if docs[i].ID == documentID {
			return i
		}
	}
	return -1
}

var _ Repo = (*MemoryRepo)(nil)

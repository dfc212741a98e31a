package documents

import "time"

// Document is an uploaded file owned by a single user. Content holds the
// extracted text and may be empty when extraction produced nothing.
type Document struct {
	ID          string
	OwnerID     string
	FileName    string
	ContentType string
	SizeBytes   int64
	Content     string
	StorageKey  string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	FileName *string
	Content  *string
	IsActive *bool
}

func (p Patch) empty() bool {
	return p.FileName == nil && p.Content == nil && p.IsActive == nil
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page selects a slice of an owner's documents, newest first.
type Page struct {
	Skip  int
	Limit int
}

// NewPage clamps limit to [1, MaxLimit] and skip to >= 0.
func NewPage(skip, limit int) Page {
	if skip < 0 {
		skip = 0
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Skip: skip, Limit: limit}
}

package documents

import "time"

type PageQuery struct {
	Skip  int `form:"skip,default=0"`
	Limit int `form:"limit,default=10"`
}

type SearchQuery struct {
	PageQuery
	Q string `form:"q"`
}

type UpdateRequest struct {
	FileName *string `json:"filename" binding:"omitempty,min=1,max=255"`
	Content  *string `json:"content"`
	IsActive *bool   `json:"is_active"`
}

// DocumentOut is the outward-facing document metadata.
type DocumentOut struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	FileName    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	IsActive    bool      `json:"is_active"`
	HasFile     bool      `json:"has_file"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DocumentDetail adds the extracted text to DocumentOut.
type DocumentDetail struct {
	DocumentOut
	Content string `json:"content"`
}

type PageResponse struct {
	Items []DocumentOut `json:"items"`
	Total int           `json:"total"`
	Skip  int           `json:"skip"`
	Limit int           `json:"limit"`
}

func toOut(doc Document) DocumentOut {
	return DocumentOut{
		ID:          doc.ID,
		OwnerID:     doc.OwnerID,
		FileName:    doc.FileName,
		ContentType: doc.ContentType,
		Size:        doc.SizeBytes,
		IsActive:    doc.IsActive,
		HasFile:     doc.StorageKey != "",
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

func toDetail(doc Document) DocumentDetail {
	return DocumentDetail{DocumentOut: toOut(doc), Content: doc.Content}
}

func toPage(docs []Document, total int, page Page) PageResponse {
	items := make([]DocumentOut, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toOut(doc))
	}
	return PageResponse{Items: items, Total: total, Skip: page.Skip, Limit: page.Limit}
}

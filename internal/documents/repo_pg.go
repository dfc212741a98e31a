package documents

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"dochub-backend/internal/shared/storage/db"
)

const documentColumns = `id, owner_id, filename, content_type, size_bytes, content, storage_key, is_active, created_at, updated_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, doc Document) (Document, error) {
	const query = `
INSERT INTO documents (id, owner_id, filename, content_type, size_bytes, content, storage_key, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
RETURNING ` + documentColumns
	created, err := scanDocument(r.DB.QueryRowContext(ctx, query,
		doc.ID,
		doc.OwnerID,
		doc.FileName,
		doc.ContentType,
		doc.SizeBytes,
		nullString(doc.Content),
		nullString(doc.StorageKey),
		doc.IsActive,
	))
	if err != nil {
		if db.ForeignKeyViolation(err) {
			return Document{}, ErrOwnerGone
		}
		return Document{}, err
	}
	return created, nil
}

func (r *PGRepo) GetByID(ctx context.Context, ownerID, documentID string) (Document, error) {
	const query = `SELECT ` + documentColumns + `
FROM documents
WHERE id = $1 AND owner_id = $2`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, documentID, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func (r *PGRepo) List(ctx context.Context, ownerID string, page Page) ([]Document, int, error) {
	return r.page(ctx, `owner_id = $1`, []any{ownerID}, page)
}

func (r *PGRepo) Search(ctx context.Context, ownerID, query string, page Page) ([]Document, int, error) {
	pattern := "%" + escapeLike(query) + "%"
	return r.page(ctx, `owner_id = $1 AND (filename ILIKE $2 ESCAPE '\' OR content ILIKE $2 ESCAPE '\')`, []any{ownerID, pattern}, page)
}

func (r *PGRepo) Update(ctx context.Context, ownerID, documentID string, patch Patch) (Document, error) {
	const query = `
UPDATE documents
SET filename = COALESCE($3, filename),
    content = COALESCE($4, content),
    is_active = COALESCE($5, is_active),
    updated_at = now()
WHERE id = $1 AND owner_id = $2
RETURNING ` + documentColumns
	var fileName, content sql.NullString
	var active sql.NullBool
	if patch.FileName != nil {
		fileName = sql.NullString{String: *patch.FileName, Valid: true}
	}
	if patch.Content != nil {
		content = sql.NullString{String: *patch.Content, Valid: true}
	}
	if patch.IsActive != nil {
		active = sql.NullBool{Bool: *patch.IsActive, Valid: true}
	}
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, documentID, ownerID, fileName, content, active))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func (r *PGRepo) Delete(ctx context.Context, ownerID, documentID string) (Document, error) {
	const query = `DELETE FROM documents WHERE id = $1 AND owner_id = $2 RETURNING ` + documentColumns
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, documentID, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func (r *PGRepo) DeleteByOwner(ctx context.Context, ownerID string) (int, error) {
	return DeleteByOwnerTx(ctx, r.DB, ownerID)
}

// DeleteByOwnerTx removes every document of ownerID through q, which may be
// a transaction.
func DeleteByOwnerTx(ctx context.Context, q db.DBTX, ownerID string) (int, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM documents WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// page counts and fetches one page under a single snapshot so total and
// items agree. where uses $1..$n for args; limit and offset follow them.
func (r *PGRepo) page(ctx context.Context, where string, args []any, page Page) ([]Document, int, error) {
	var (
		total int
		out   = []Document{}
	)
	err := db.WithTx(ctx, r.DB, db.ReadOnlySnapshot, func(ctx context.Context, tx db.DBTX) error {
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE `+where, args...).Scan(&total); err != nil {
			return err
		}
		if total == 0 || page.Skip >= total {
			return nil
		}

		n := len(args)
		query := `SELECT ` + documentColumns + `
FROM documents
WHERE ` + where + `
ORDER BY created_at DESC, id DESC
LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
		rows, err := tx.QueryContext(ctx, query, append(args, page.Limit, page.Skip)...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			doc, err := scanDocument(rows)
			if err != nil {
				return err
			}
			out = append(out, doc)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var content, storageKey sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.FileName,
		&doc.ContentType,
		&doc.SizeBytes,
		&content,
		&storageKey,
		&doc.IsActive,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	doc.Content = content.String
	doc.StorageKey = storageKey.String
	return doc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// escapeLike escapes LIKE metacharacters so the query matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ Repo = (*PGRepo)(nil)

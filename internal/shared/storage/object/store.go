package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open when no object exists for the key.
var ErrNotFound = errors.New("object not found")

// ObjectStore keeps original upload bytes. Keys are namespaced per owner so
// an owner's objects can be removed together.
type ObjectStore interface {
	Save(ctx context.Context, ownerID, fileName, contentType string, r io.Reader, size int64) (storageKey string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// Delete removes one object; a missing object is not an error.
	Delete(ctx context.Context, storageKey string) error
	// DeleteOwner removes every object stored for ownerID.
	DeleteOwner(ctx context.Context, ownerID string) error
}

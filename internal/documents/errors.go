package documents

import "errors"

var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyFile       = errors.New("file is empty")
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrInvalidQuery    = errors.New("search query must not be empty")
	ErrNoFile          = errors.New("original file not stored")
	ErrOwnerGone       = errors.New("document owner no longer exists")
)

package documents

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"dochub-backend/internal/extract"
)

var suffixContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain; charset=utf-8",
}

// ResolveContentType picks the stored content type for an upload: the
// declared type when it is specific, else one derived from the suffix,
// else a sniffed one.
func ResolveContentType(fileName, declared string, data []byte) string {
	if mediaType, params, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
		return mime.FormatMediaType(mediaType, params)
	}
	if ct, ok := suffixContentTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return ct
	}
	return http.DetectContentType(data)
}

// Supported reports whether an upload can be ingested: a known extractor
// suffix or a textual content type.
func Supported(fileName, contentType string) bool {
	if extract.FormatFor(fileName) != extract.FormatRaw {
		return true
	}
	return strings.HasPrefix(strings.ToLower(contentType), "text/")
}

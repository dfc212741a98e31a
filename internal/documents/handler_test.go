package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"dochub-backend/internal/bootstrap"
	"dochub-backend/internal/documents"
	"dochub-backend/internal/shared/config"
)

type documentBody struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	FileName    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Content     string `json:"content"`
	IsActive    bool   `json:"is_active"`
	HasFile     bool   `json:"has_file"`
}

type pageBody struct {
	Items []documentBody `json:"items"`
	Total int            `json:"total"`
	Skip  int            `json:"skip"`
	Limit int            `json:"limit"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Details struct {
			Stage string `json:"stage"`
		} `json:"details"`
	} `json:"error"`
}

func newRouter(t *testing.T, mutate func(*config.Config)) *gin.Engine {
	t.Helper()
	return newApp(t, mutate).Router
}

func newApp(t *testing.T, mutate func(*config.Config)) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		Env:             "test",
		BcryptCost:      4,
		LocalStoreDir:   t.TempDir(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return doJSONFrom(t, router, "", method, path, token, body)
}

// doJSONFrom is doJSON with the client address set to remoteAddr when non-empty.
func doJSONFrom(t *testing.T, router *gin.Engine, remoteAddr, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func signUp(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()
	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", username, resp.Code, resp.Body.String())
	}
	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, resp.Code, resp.Body.String())
	}
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return tokens.AccessToken
}

func upload(t *testing.T, router *gin.Engine, token, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	return uploadFrom(t, router, "", token, name, data)
}

func uploadFrom(t *testing.T, router *gin.Engine, remoteAddr, token, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write(data); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func mustUpload(t *testing.T, router *gin.Engine, token, name string, data []byte) documentBody {
	t.Helper()
	resp := upload(t, router, token, name, data)
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload %s: expected 201, got %d: %s", name, resp.Code, resp.Body.String())
	}
	var doc documentBody
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	return doc
}

func decodePage(t *testing.T, resp *httptest.ResponseRecorder) pageBody {
	t.Helper()
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var page pageBody
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	return page
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeError(t, resp).Error.Code
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error: %v (%s)", err, resp.Body.String())
	}
	return body
}

func TestUploadThenSearch(t *testing.T) {
	router := newRouter(t, nil)
	token := signUp(t, router, "alice")

	doc := mustUpload(t, router, token, "hello.txt", []byte("Hello world"))
	if doc.ID == "" {
		t.Fatalf("expected id, got empty")
	}
	if doc.Size != int64(len("Hello world")) {
		t.Fatalf("expected size 11, got %d", doc.Size)
	}
	if doc.Content != "Hello world" {
		t.Fatalf("unexpected content %q", doc.Content)
	}
	if !strings.HasPrefix(doc.ContentType, "text/plain") {
		t.Fatalf("unexpected content type %q", doc.ContentType)
	}
	mustUpload(t, router, token, "notes.txt", []byte("unrelated notes"))

	for _, q := range []string{"Hello", "hello", "HELLO.TXT"} {
		page := decodePage(t, doJSON(t, router, http.MethodGet, "/api/v1/documents/search?q="+q, token, nil))
		if page.Total != 1 || len(page.Items) != 1 || page.Items[0].ID != doc.ID {
			t.Fatalf("q=%s: expected exactly the hello document, got %+v", q, page)
		}
	}

	page := decodePage(t, doJSON(t, router, http.MethodGet, "/api/v1/documents/search?q=zzz", token, nil))
	if page.Total != 0 || len(page.Items) != 0 {
		t.Fatalf("expected empty result, got %+v", page)
	}

	resp := doJSON(t, router, http.MethodGet, "/api/v1/documents/search?q=%20%20", token, nil)
	if resp.Code != http.StatusBadRequest || errorCode(t, resp) != "invalid_query" {
		t.Fatalf("expected 400 invalid_query, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUploadCorruptPDFKeepsMetadata(t *testing.T) {
	router := newRouter(t, nil)
	token := signUp(t, router, "alice")

	payload := []byte("%PDF-1.7 this is not really a pdf \x00\x01\x02")
	doc := mustUpload(t, router, token, "broken.pdf", payload)
	if doc.Content != "" {
		t.Fatalf("expected empty content, got %q", doc.Content)
	}
	if doc.Size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), doc.Size)
	}
	if doc.ContentType != "application/pdf" {
		t.Fatalf("unexpected content type %q", doc.ContentType)
	}

	resp := doJSON(t, router, http.MethodGet, "/api/v1/documents/"+doc.ID, token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected stored document, got %d", resp.Code)
	}
}

func TestOtherOwnersDocumentsAreNotFound(t *testing.T) {
	router := newRouter(t, nil)
	alice := signUp(t, router, "alice")
	bob := signUp(t, router, "bob")

	doc := mustUpload(t, router, bob, "secret.txt", []byte("bob's secret"))

	resp := doJSON(t, router, http.MethodGet, "/api/v1/documents/"+doc.ID, alice, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "secret") {
		t.Fatalf("response leaked content: %s", resp.Body.String())
	}
	resp = doJSON(t, router, http.MethodPut, "/api/v1/documents/"+doc.ID, alice, map[string]any{"filename": "mine.txt"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on update, got %d", resp.Code)
	}
	resp = doJSON(t, router, http.MethodDelete, "/api/v1/documents/"+doc.ID, alice, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on delete, got %d", resp.Code)
	}
	resp = doJSON(t, router, http.MethodGet, "/api/v1/documents/not-a-uuid", alice, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed id, got %d", resp.Code)
	}

	page := decodePage(t, doJSON(t, router, http.MethodGet, "/api/v1/documents/search?q=secret", alice, nil))
	if page.Total != 0 {
		t.Fatalf("search must be owner scoped, got %+v", page)
	}

	resp = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+doc.ID, bob, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("owner should still read the document, got %d", resp.Code)
	}
}

func TestDeleteTwice(t *testing.T) {
	router := newRouter(t, nil)
	token := signUp(t, router, "alice")
	doc := mustUpload(t, router, token, "a.txt", []byte("a"))

	resp := doJSON(t, router, http.MethodDelete, "/api/v1/documents/"+doc.ID, token, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	resp = doJSON(t, router, http.MethodDelete, "/api/v1/documents/"+doc.ID, token, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.Code)
	}
}

func TestUploadRejections(t *testing.T) {
	router := newRouter(t, func(cfg *config.Config) { cfg.MaxUploadBytes = 16 })
	token := signUp(t, router, "alice")

	tests := []struct {
		name   string
		file   string
		data   []byte
		token  string
		status int
		code   string
	}{
		{name: "empty", file: "empty.txt", data: nil, token: token, status: http.StatusBadRequest, code: "empty_file"},
		{name: "unsupported", file: "image.png", data: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), token: token, status: http.StatusBadRequest, code: "unsupported_media_type"},
		{name: "too large", file: "big.txt", data: bytes.Repeat([]byte("a"), 32), token: token, status: http.StatusRequestEntityTooLarge, code: "file_too_large"},
		{name: "unauthenticated", file: "a.txt", data: []byte("a"), token: "", status: http.StatusUnauthorized, code: "unauthorized"},
		{name: "bad token", file: "a.txt", data: []byte("a"), token: "not-a-token", status: http.StatusUnauthorized, code: "invalid_token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upload(t, router, tt.token, tt.file, tt.data)
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
			if got := errorCode(t, resp); got != tt.code {
				t.Fatalf("expected code %q, got %q", tt.code, got)
			}
		})
	}

	mustUpload(t, router, token, "README", []byte("plain text body"))
}

func TestListPagination(t *testing.T) {
	router := newRouter(t, nil)
	token := signUp(t, router, "alice")
	var ids []string
	for i := 0; i < 3; i++ {
		doc := mustUpload(t, router, token, fmt.Sprintf("doc-%d.txt", i), []byte(fmt.Sprintf("body %d", i)))
		ids = append(ids, doc.ID)
	}

	page := decodePage(t, doJSON(t, router, http.MethodGet, "/api/v1/documents", token, nil))
	if page.Total != 3 || len(page.Items) != 3 || page.Limit != 10 || page.Skip != 0 {
		t.Fatalf("unexpected default page %+v", page)
	}
	if page.Items[0].ID != ids[2] || page.Items[2].ID != ids[0] {
		t.Fatalf("expected newest first")
	}

	page = decodePage(t, doJSON(t, router, http.MethodGet, "/api/v1/documents?skip=2&limit=2", token, nil))
	if page.Total != 3 || len(page.Items) != 1 || page.Items[0].ID != ids[0] {
		t.Fatalf("unexpected second page %+v", page)
	}

	page = decodePage(t, doJSON(t, router, http.MethodGet, "/api/v1/documents?skip=-5&limit=0", token, nil))
	if page.Skip != 0 || page.Limit != 1 || len(page.Items) != 1 {
		t.Fatalf("expected clamped paging, got %+v", page)
	}

	page = decodePage(t, doJSON(t, router, http.MethodGet, "/api/v1/documents?limit=1000", token, nil))
	if page.Limit != 100 {
		t.Fatalf("expected limit clamped to 100, got %d", page.Limit)
	}

	resp := doJSON(t, router, http.MethodGet, "/api/v1/documents?limit=abc", token, nil)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for non-integer limit, got %d", resp.Code)
	}
}

func TestUpdateDocument(t *testing.T) {
	router := newRouter(t, nil)
	token := signUp(t, router, "alice")
	doc := mustUpload(t, router, token, "draft.txt", []byte("first draft"))

	resp := doJSON(t, router, http.MethodPut, "/api/v1/documents/"+doc.ID, token, map[string]any{
		"filename":  "final.txt",
		"is_active": false,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var updated documentBody
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if updated.FileName != "final.txt" || updated.IsActive || updated.Content != "first draft" {
		t.Fatalf("unexpected document after update: %+v", updated)
	}
	if updated.Size != doc.Size {
		t.Fatalf("size must not change on update")
	}

	resp = doJSON(t, router, http.MethodPut, "/api/v1/documents/"+doc.ID, token, map[string]any{"content": "rewritten body"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	page := decodePage(t, doJSON(t, router, http.MethodGet, "/api/v1/documents/search?q=rewritten", token, nil))
	if page.Total != 1 {
		t.Fatalf("expected updated content to be searchable, got %+v", page)
	}

	resp = doJSON(t, router, http.MethodPut, "/api/v1/documents/"+doc.ID, token, map[string]any{"filename": ""})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty filename, got %d", resp.Code)
	}
}

func TestDownloadOriginal(t *testing.T) {
	router := newRouter(t, func(cfg *config.Config) { cfg.ObjectStoreType = "local" })
	token := signUp(t, router, "alice")
	doc := mustUpload(t, router, token, "hello.txt", []byte("Hello world"))
	if !doc.HasFile {
		t.Fatalf("expected original to be retained")
	}

	resp := doJSON(t, router, http.MethodGet, "/api/v1/documents/"+doc.ID+"/file", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Body.String() != "Hello world" {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
	if !strings.Contains(resp.Header().Get("Content-Disposition"), "hello.txt") {
		t.Fatalf("unexpected disposition %q", resp.Header().Get("Content-Disposition"))
	}

	if resp := doJSON(t, router, http.MethodDelete, "/api/v1/documents/"+doc.ID, token, nil); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	resp = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+doc.ID+"/file", token, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.Code)
	}
}

func TestDownloadWithoutStoreIsNotFound(t *testing.T) {
	router := newRouter(t, nil)
	token := signUp(t, router, "alice")
	doc := mustUpload(t, router, token, "hello.txt", []byte("Hello world"))
	if doc.HasFile {
		t.Fatalf("expected no retained original without an object store")
	}
	resp := doJSON(t, router, http.MethodGet, "/api/v1/documents/"+doc.ID+"/file", token, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestRateLimitedRequestsGet429(t *testing.T) {
	router := newRouter(t, func(cfg *config.Config) { cfg.RateLimitRequests = 5 })
	token := signUp(t, router, "alice")

	var limited *httptest.ResponseRecorder
	for i := 0; i < 10; i++ {
		resp := doJSON(t, router, http.MethodGet, "/api/v1/documents", token, nil)
		if resp.Code == http.StatusTooManyRequests {
			limited = resp
			break
		}
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, resp.Code)
		}
	}
	if limited == nil {
		t.Fatalf("expected a 429 within the budget")
	}
	if limited.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if got := errorCode(t, limited); got != "rate_limited" {
		t.Fatalf("expected rate_limited, got %q", got)
	}
}

func TestPrincipalBudgetAppliesAcrossAddresses(t *testing.T) {
	const limit = 3
	app := newApp(t, func(cfg *config.Config) { cfg.RateLimitRequests = limit })
	token := signUp(t, app.Router, "alice")

	var ownerID string
	for i := 1; i <= limit; i++ {
		addr := fmt.Sprintf("10.0.0.%d:4000", i)
		resp := uploadFrom(t, app.Router, addr, token, fmt.Sprintf("doc-%d.txt", i), []byte("body"))
		if resp.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d: %s", i, resp.Code, resp.Body.String())
		}
		var doc documentBody
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			t.Fatalf("decode upload: %v", err)
		}
		ownerID = doc.OwnerID
	}

	resp := uploadFrom(t, app.Router, "10.0.0.99:4000", token, "over.txt", []byte("over budget"))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("request %d: expected 429, got %d: %s", limit+1, resp.Code, resp.Body.String())
	}
	body := decodeError(t, resp)
	if body.Error.Code != "rate_limited" || body.Error.Details.Stage != "principal" {
		t.Fatalf("expected principal rate limit, got %+v", body.Error)
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	_, total, err := app.DocumentsRepo.List(context.Background(), ownerID, documents.NewPage(0, 10))
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if total != limit {
		t.Fatalf("rejected upload must not be stored: expected %d documents, got %d", limit, total)
	}
}

func TestAddressBudgetAppliesBeforeAuthentication(t *testing.T) {
	const limit = 3
	router := newRouter(t, func(cfg *config.Config) { cfg.RateLimitRequests = limit })

	for i := 1; i <= limit; i++ {
		resp := doJSONFrom(t, router, "10.0.2.1:4000", http.MethodGet, "/api/v1/documents", "not-a-token", nil)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("request %d: expected 401, got %d", i, resp.Code)
		}
	}
	resp := doJSONFrom(t, router, "10.0.2.1:4000", http.MethodGet, "/api/v1/documents", "not-a-token", nil)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("request %d: expected 429, got %d", limit+1, resp.Code)
	}
	if stage := decodeError(t, resp).Error.Details.Stage; stage != "address" {
		t.Fatalf("expected address stage, got %q", stage)
	}
}

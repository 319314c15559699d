package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"funding-apply/internal/common/logger"
	"funding-apply/internal/docupload"
	"funding-apply/internal/draft"
	"funding-apply/internal/pipeline"
	"funding-apply/internal/signature"
	"funding-apply/internal/storage"
	"funding-apply/internal/wizard"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCerts struct{}

func (stubCerts) Issue(_ context.Context, userAgent string) signature.Certificate {
	return signature.Certificate{
		IP:        "203.0.113.9",
		UserAgent: userAgent,
		Timestamp: time.Now().UTC(),
		SigningID: "cert-1",
	}
}

type stubPDF struct{}

func (stubPDF) Render(context.Context, *draft.Application, signature.Certificate) ([]byte, error) {
	return []byte("%PDF-1.4 stub"), nil
}

type stubStore struct{}

func (stubStore) Upload(_ context.Context, folder storage.Folder, filename, _ string, _ []byte) (string, error) {
	return "https://files.example.com/" + folder.Path + "/" + filename, nil
}

func newTestServer(t *testing.T) (*gin.Engine, *draft.Store) {
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	log := logger.NewTestLogger(t)

	store := draft.NewStore(rdb, time.Hour, log)
	saver := draft.NewSaver(store, 5*time.Millisecond)
	t.Cleanup(saver.Stop)

	pipe := pipeline.New(stubCerts{}, stubPDF{}, stubStore{}, pipeline.Options{},
		5*time.Second, 10*time.Second, log)
	uploader := docupload.NewUploader(stubStore{}, docupload.Limits{MinBytes: 1 << 10, MaxBytes: 10 << 20}, log)

	srv := NewServer(store, saver, pipe, uploader, log)
	return srv.Router(nil), store
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, session string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequiresSessionHeader(t *testing.T) {
	router, _ := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/api/v1/draft", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDraftSaveAndLoad(t *testing.T) {
	router, store := newTestServer(t)
	app := wizard.PreviewSeed()

	w := doJSON(t, router, http.MethodPost, "/api/v1/draft", gin.H{
		"application": app,
		"step":        2,
	}, "sess-1")
	require.Equal(t, http.StatusAccepted, w.Code)

	// Wait out the debounce window.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, _, ok := store.Load(context.Background(), "sess-1"); ok {
			break
		}
		require.True(t, time.Now().Before(deadline), "draft never saved")
		time.Sleep(5 * time.Millisecond)
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/draft", nil, "sess-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"meaningful":true`)
	assert.Contains(t, w.Body.String(), `"step":2`)
}

func TestDraftSaveRejectsBadShape(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/draft", gin.H{
		"application": gin.H{"fundingAmount": 50000},
	}, "sess-1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDraftLoadAbsent(t *testing.T) {
	router, _ := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/api/v1/draft", nil, "nobody")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidateStepReportsErrors(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/steps/1/validate", gin.H{
		"application": draft.Application{},
	}, "sess-1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Valid        bool              `json:"valid"`
		Errors       map[string]string `json:"errors"`
		FirstInvalid string            `json:"firstInvalid"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	assert.Equal(t, "fundingAmount", resp.FirstInvalid)
}

func TestValidateStepBadStep(t *testing.T) {
	router, _ := newTestServer(t)
	w := doJSON(t, router, http.MethodPost, "/api/v1/steps/9/validate", gin.H{}, "sess-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitHappyPath(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/submit", gin.H{
		"application": wizard.PreviewSeed(),
	}, "sess-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"submitted":true`)
	assert.Contains(t, w.Body.String(), "application.pdf")
}

func TestSubmitRejectsInvalidApplication(t *testing.T) {
	router, _ := newTestServer(t)

	app := wizard.PreviewSeed()
	app.EIN = "12"

	w := doJSON(t, router, http.MethodPost, "/api/v1/submit", gin.H{
		"application": app,
	}, "sess-1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "ein")
}

func TestSubmitThrottled(t *testing.T) {
	router, _ := newTestServer(t)
	app := wizard.PreviewSeed()

	w := doJSON(t, router, http.MethodPost, "/api/v1/submit", gin.H{"application": app}, "sess-1")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/submit", gin.H{"application": app}, "sess-1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestDocumentsRejectBadExtension(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/documents", gin.H{
		"folderPath": "applications/acme/20260829-150405",
		"bankStatements": gin.H{
			"filename": "statement.exe",
			"data":     base64.StdEncoding.EncodeToString(make([]byte, 2<<10)),
		},
	}, "sess-1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "bad_extension")
}

func TestDocumentsRequireFolder(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/documents", gin.H{
		"otherDocuments": gin.H{
			"filename": "lease.png",
			"data":     base64.StdEncoding.EncodeToString(make([]byte, 2<<10)),
		},
	}, "sess-1")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDocumentsRequireBankStatements(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/documents", gin.H{
		"folderPath": "applications/acme/20260829T150405Z",
		"otherDocuments": gin.H{
			"filename": "lease.png",
			"data":     base64.StdEncoding.EncodeToString(make([]byte, 2<<10)),
		},
	}, "sess-1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDocumentsUpload(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/documents", gin.H{
		"folderPath": "applications/acme/20260829-150405",
		"bankStatements": gin.H{
			"filename": "statements-q2.png",
			"data":     base64.StdEncoding.EncodeToString(make([]byte, 2<<10)),
		},
	}, "sess-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bank-statements.png")
}

func TestHealthz(t *testing.T) {
	router, _ := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

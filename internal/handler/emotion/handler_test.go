package emotion

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhaojunwei/campus-companion/backend/internal/auth"
	emotionmodel "github.com/zhaojunwei/campus-companion/backend/internal/model/emotion"
	emotionservice "github.com/zhaojunwei/campus-companion/backend/internal/service/emotion"
)

type testEnv struct {
	router  http.Handler
	session *http.Cookie
	store   *emotionmodel.MemoryStore
}

func newTestEnv() *testEnv {
	store := emotionmodel.NewMemoryStore()
	sessions := auth.NewManager()
	token := sessions.Issue("u1")

	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sessions.Middleware)
		New(emotionservice.NewService(store)).RegisterRoutes(pr)
	})

	return &testEnv{
		router:  r,
		session: &http.Cookie{Name: auth.CookieName, Value: token},
		store:   store,
	}
}

func multipartUpload(t *testing.T, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "frame.png")
	if err != nil {
		t.Fatalf("CreateFormFile err: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("part write err: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer close err: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func brightPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 240
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestAnalyzeUploadSuccess(t *testing.T) {
	env := newTestEnv()
	body, contentType := multipartUpload(t, brightPNG(t))

	req := httptest.NewRequest(http.MethodPost, "/emotion/analyze", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(env.session)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var result emotionmodel.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("response decode: %v", err)
	}
	if !result.Label.Valid() {
		t.Fatalf("unexpected label %q", result.Label)
	}
	if result.Confidence <= 0 {
		t.Fatalf("confidence must be positive, got %f", result.Confidence)
	}
}

func TestAnalyzeEmptyFile(t *testing.T) {
	env := newTestEnv()
	body, contentType := multipartUpload(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/emotion/analyze", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(env.session)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty file, got %d (%s)", rec.Code, rec.Body.String())
	}

	counts, err := env.store.Frequencies(req.Context(), "u1")
	if err != nil {
		t.Fatalf("Frequencies err: %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("empty upload must not be recorded, got %v", counts)
	}
}

func TestAnalyzeMissingFileField(t *testing.T) {
	env := newTestEnv()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/emotion/analyze", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.AddCookie(env.session)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a file part, got %d", rec.Code)
	}
}

func TestAnalyticsEmpty(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodGet, "/emotion/analytics", nil)
	req.AddCookie(env.session)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var payload struct {
		Emotions map[string]int `json:"emotions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response decode: %v", err)
	}
	if len(payload.Emotions) != 0 {
		t.Fatalf("expected empty analytics, got %v", payload.Emotions)
	}
}

func TestAnalyzeUnauthenticated(t *testing.T) {
	env := newTestEnv()
	body, contentType := multipartUpload(t, brightPNG(t))

	req := httptest.NewRequest(http.MethodPost, "/emotion/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", rec.Code)
	}
}

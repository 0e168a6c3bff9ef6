package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhaojunwei/campus-companion/backend/internal/auth"
	usermodel "github.com/zhaojunwei/campus-companion/backend/internal/model/user"
)

func newTestRouter() http.Handler {
	h := New(usermodel.NewMemoryStore(), auth.NewManager())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, router http.Handler, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginCurrentUserFlow(t *testing.T) {
	router := newTestRouter()

	rec := postJSON(t, router, "/register", `{"username":"alice","password":"pw1"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("register response: %v", err)
	}
	if created["id"] == "" || created["username"] != "alice" {
		t.Fatalf("unexpected register response: %v", created)
	}

	rec = postJSON(t, router, "/login", `{"username":"alice","password":"pw1"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != auth.CookieName || cookies[0].Value == "" {
		t.Fatalf("login must set the session cookie, got %v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/user: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var current map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &current); err != nil {
		t.Fatalf("/user response: %v", err)
	}
	if current["username"] != "alice" || current["id"] != created["id"] {
		t.Fatalf("unexpected current user: %v", current)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	router := newTestRouter()

	if rec := postJSON(t, router, "/register", `{"username":"alice","password":"pw1"}`, nil); rec.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", rec.Code)
	}

	rec := postJSON(t, router, "/register", `{"username":"alice","password":"other"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "username already taken") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestRegisterRejectsBlankFields(t *testing.T) {
	router := newTestRouter()

	for _, body := range []string{
		`{"username":"","password":"pw"}`,
		`{"username":"   ","password":"pw"}`,
		`{"username":"bob","password":""}`,
		`not json`,
	} {
		if rec := postJSON(t, router, "/register", body, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("register %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestLoginBadCredentials(t *testing.T) {
	router := newTestRouter()
	postJSON(t, router, "/register", `{"username":"alice","password":"pw1"}`, nil)

	for _, body := range []string{
		`{"username":"alice","password":"wrong"}`,
		`{"username":"nobody","password":"pw1"}`,
	} {
		rec := postJSON(t, router, "/login", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("login %q: expected 400, got %d", body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "invalid username or password") {
			t.Fatalf("unexpected error body: %s", rec.Body.String())
		}
	}
}

func TestCurrentUserUnauthenticated(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a cookie, got %d", rec.Code)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	router := newTestRouter()
	postJSON(t, router, "/register", `{"username":"alice","password":"pw1"}`, nil)

	rec := postJSON(t, router, "/login", `{"username":"alice","password":"pw1"}`, nil)
	session := rec.Result().Cookies()[0]

	rec = postJSON(t, router, "/logout", ``, []*http.Cookie{session})
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}

	cleared := rec.Result().Cookies()
	if len(cleared) == 0 || cleared[0].MaxAge != -1 {
		t.Fatalf("logout must expire the cookie, got %v", cleared)
	}

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

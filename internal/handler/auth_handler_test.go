package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"portal/internal/apperr"
	"portal/internal/auth"
	"portal/internal/middleware"
	"portal/internal/model"
	"portal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubUserService struct {
	loginFn  func(ctx context.Context, req service.LoginRequest, ip string) (*service.LoginResponse, string, error)
	logoutFn func(ctx context.Context, actor auth.Identity, rawRefresh, ip string) error
	getMeFn  func(ctx context.Context, userID uuid.UUID) (*service.MeResponse, error)
}

func (s *stubUserService) Login(ctx context.Context, req service.LoginRequest, ip string) (*service.LoginResponse, string, error) {
	return s.loginFn(ctx, req, ip)
}

func (s *stubUserService) Logout(ctx context.Context, actor auth.Identity, rawRefresh, ip string) error {
	return s.logoutFn(ctx, actor, rawRefresh, ip)
}

func (s *stubUserService) GetMe(ctx context.Context, userID uuid.UUID) (*service.MeResponse, error) {
	return s.getMeFn(ctx, userID)
}

func (s *stubUserService) CreateStaff(context.Context, auth.Identity, service.CreateStaffRequest, string) (*service.UserResponse, error) {
	return nil, nil
}

func (s *stubUserService) ListStaff(context.Context, int, int, string) ([]service.UserResponse, int64, error) {
	return nil, 0, nil
}

func (s *stubUserService) GetStaff(context.Context, string) (*service.UserResponse, error) {
	return nil, nil
}

func (s *stubUserService) UpdateStaff(context.Context, auth.Identity, string, service.UpdateStaffRequest, string) (*service.UserResponse, error) {
	return nil, nil
}

func (s *stubUserService) DeleteStaff(context.Context, auth.Identity, string, string) error {
	return nil
}

// emptyTokenRepo backs a TokenService whose every rotation misses
type emptyTokenRepo struct{}

func (emptyTokenRepo) Create(context.Context, *model.RefreshToken) error { return nil }
func (emptyTokenRepo) Consume(context.Context, string) (*model.RefreshToken, error) {
	return nil, gorm.ErrRecordNotFound
}
func (emptyTokenRepo) DeleteByHash(context.Context, string) error    { return nil }
func (emptyTokenRepo) DeleteByUser(context.Context, uuid.UUID) error { return nil }

func newAuthRouter(t *testing.T, users *stubUserService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := auth.NewTokenService(emptyTokenRepo{}, nil, []byte("test-secret"))
	middleware.Init(nil, tokens)

	r := gin.New()
	NewAuthHandler(users, tokens).RegisterRoutes(r.Group("/"))
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginFailureBodyIsUniform(t *testing.T) {
	users := &stubUserService{
		loginFn: func(_ context.Context, _ service.LoginRequest, _ string) (*service.LoginResponse, string, error) {
			return nil, "", apperr.ErrUnauthorized
		},
	}
	r := newAuthRouter(t, users)

	// Unknown account, wrong password and deactivated account all surface the
	// same sentinel; the wire responses must be byte-identical.
	w1 := postJSON(r, "/login", `{"email":"ghost@example.com","password":"x"}`)
	w2 := postJSON(r, "/login", `{"email":"real@example.com","password":"wrong"}`)

	if w1.Code != http.StatusUnauthorized || w2.Code != http.StatusUnauthorized {
		t.Fatalf("codes = %d, %d, want 401", w1.Code, w2.Code)
	}
	if w1.Body.String() != w2.Body.String() {
		t.Errorf("failure bodies differ:\n%s\n%s", w1.Body.String(), w2.Body.String())
	}
	for _, w := range []*httptest.ResponseRecorder{w1, w2} {
		if len(w.Result().Cookies()) != 0 {
			t.Error("failed login set a cookie")
		}
	}
}

func TestLoginSuccessSetsRefreshCookieOnly(t *testing.T) {
	users := &stubUserService{
		loginFn: func(_ context.Context, _ service.LoginRequest, _ string) (*service.LoginResponse, string, error) {
			return &service.LoginResponse{
				AccessToken: "signed-access",
				User:        service.UserResponse{Email: "mgr@example.com"},
			}, "raw-refresh-value", nil
		},
	}
	r := newAuthRouter(t, users)

	w := postJSON(r, "/login", `{"email":"mgr@example.com","password":"correct"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != middleware.RefreshCookieName {
		t.Fatalf("cookies = %+v", cookies)
	}
	if cookies[0].Value != "raw-refresh-value" || !cookies[0].HttpOnly {
		t.Errorf("refresh cookie = %+v", cookies[0])
	}

	// The body carries the access token but never the refresh token
	if !strings.Contains(w.Body.String(), "signed-access") {
		t.Error("access token missing from body")
	}
	if strings.Contains(w.Body.String(), "raw-refresh-value") {
		t.Error("refresh token leaked into the body")
	}
}

func TestLoginRejectsMalformedPayload(t *testing.T) {
	users := &stubUserService{
		loginFn: func(_ context.Context, _ service.LoginRequest, _ string) (*service.LoginResponse, string, error) {
			t.Fatal("service reached with malformed payload")
			return nil, "", nil
		},
	}
	r := newAuthRouter(t, users)

	for _, body := range []string{``, `{}`, `{"email":"not-an-email","password":"x"}`} {
		if w := postJSON(r, "/login", body); w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestRefreshWithoutCookieClearsAndRejects(t *testing.T) {
	r := newAuthRouter(t, &stubUserService{})

	w := postJSON(r, "/refresh", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected a clearing cookie, got %+v", cookies)
	}
}

func TestRefreshWithConsumedTokenClearsAndRejects(t *testing.T) {
	r := newAuthRouter(t, &stubUserService{})

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshCookieName, Value: "already-rotated"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 || cookies[0].Value != "" {
		t.Errorf("expected a clearing cookie, got %+v", cookies)
	}
	if strings.Contains(w.Body.String(), "accessToken") {
		t.Error("failed rotation issued an access token")
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	var revoked string
	users := &stubUserService{
		logoutFn: func(_ context.Context, _ auth.Identity, rawRefresh, _ string) error {
			revoked = rawRefresh
			return nil
		},
	}
	r := newAuthRouter(t, &stubUserService{logoutFn: users.logoutFn})

	tokens := auth.NewTokenService(emptyTokenRepo{}, nil, []byte("test-secret"))
	access, err := tokens.IssueAccessToken(uuid.New(), []string{model.RoleManager})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshCookieName, Value: "current-session"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if revoked != "current-session" {
		t.Errorf("revoked = %q, want the cookie value", revoked)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected a clearing cookie, got %+v", cookies)
	}
}

func TestErrorTaxonomyMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		code int
	}{
		{apperr.ErrUnauthorized, http.StatusUnauthorized},
		{apperr.ErrForbidden, http.StatusForbidden},
		{apperr.ErrNotFound, http.StatusNotFound},
		{apperr.ErrConflict, http.StatusConflict},
		{apperr.Validation("field", "bad value"), http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

		respondErr(c, tc.err)
		if w.Code != tc.code {
			t.Errorf("respondErr(%v) = %d, want %d", tc.err, w.Code, tc.code)
		}

		var body map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("body not JSON: %v", err)
		}
		if tc.code == http.StatusInternalServerError {
			if msg, _ := body["error"].(string); strings.Contains(msg, "deadline") {
				t.Error("internal error detail leaked to the client")
			}
		}
	}
}

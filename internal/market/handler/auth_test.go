package handler_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/infomarket/server/internal/identity"
	"github.com/infomarket/server/internal/market/handler"
	"github.com/infomarket/server/internal/users"
)

// ── fake user service ───────────────────────────────────────────────────

type fakeUserSvc struct {
	byEmail map[string]*users.User
}

func newFakeUserSvc() *fakeUserSvc {
	return &fakeUserSvc{byEmail: map[string]*users.User{}}
}

func (f *fakeUserSvc) Signup(_ context.Context, email, _, displayName string) (*users.User, string, error) {
	if _, exists := f.byEmail[email]; exists {
		return nil, "", users.ErrDuplicateEmail
	}
	u := &users.User{ID: uuid.New(), Email: email, DisplayName: displayName, Username: email}
	f.byEmail[email] = u
	return u, "verify-token", nil
}

func (f *fakeUserSvc) Login(_ context.Context, email, password string) (*users.User, error) {
	u, ok := f.byEmail[email]
	if !ok || password != "correct-password" {
		return nil, users.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserSvc) VerifyEmail(_ context.Context, token string) (*users.User, error) {
	if token != "verify-token" {
		return nil, users.ErrNotFound
	}
	for _, u := range f.byEmail {
		u.EmailVerified = true
		return u, nil
	}
	return nil, users.ErrNotFound
}

func (f *fakeUserSvc) ResendVerification(_ context.Context, _ uuid.UUID) error { return nil }

func (f *fakeUserSvc) ResendVerificationByEmail(_ context.Context, _ string) error { return nil }

func (f *fakeUserSvc) ForgotPassword(_ context.Context, _ string) error { return nil }

func (f *fakeUserSvc) ResetPassword(_ context.Context, token, _ string) error {
	if token != "reset-token" {
		return users.ErrNotFound
	}
	return nil
}

func (f *fakeUserSvc) GetOrCreateFromOAuth(_ context.Context, _, providerID, email, displayName string) (*users.User, bool, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, false, nil
	}
	u := &users.User{ID: uuid.New(), Email: email, DisplayName: displayName, Username: providerID}
	f.byEmail[email] = u
	return u, true, nil
}

func (f *fakeUserSvc) GetPublicProfile(_ context.Context, username string) (*users.PublicProfile, error) {
	for _, u := range f.byEmail {
		if u.Username == username && u.PublicProfile {
			return &users.PublicProfile{Username: u.Username, DisplayName: u.DisplayName}, nil
		}
	}
	return nil, users.ErrNotFound
}

// ── harness ──────────────────────────────────────────────────────────────

func authTestRouter(t *testing.T, svc *fakeUserSvc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tokens := identity.NewUserTokenIssuer(key, "http://test", time.Hour)
	h := handler.NewAuthHandler(svc, tokens, nil, zap.NewNop())
	r := gin.New()
	v1 := r.Group("/v1")
	h.Register(v1)
	return r
}

// ── tests ────────────────────────────────────────────────────────────────

func TestSignup_Succeeds(t *testing.T) {
	router := authTestRouter(t, newFakeUserSvc())

	body := `{"email":"ada@example.com","password":"hunter2","display_name":"Ada"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSignup_RejectsDuplicateEmail(t *testing.T) {
	svc := newFakeUserSvc()
	router := authTestRouter(t, svc)

	body := `{"email":"ada@example.com","password":"hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)

	req2 := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewBufferString(body))
	req2.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req2)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLogin_SucceedsWithCorrectPassword(t *testing.T) {
	svc := newFakeUserSvc()
	router := authTestRouter(t, svc)

	signupBody := `{"email":"ada@example.com","password":"correct-password"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewBufferString(signupBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)

	loginBody := `{"email":"ada@example.com","password":"correct-password"}`
	req2 := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewBufferString(loginBody))
	req2.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req2)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

type fakeBonus struct{ credited []uuid.UUID }

func (f *fakeBonus) DailyBonus(_ context.Context, userID uuid.UUID, _ string) error {
	f.credited = append(f.credited, userID)
	return nil
}

func TestLogin_CreditsDailyBonus(t *testing.T) {
	svc := newFakeUserSvc()
	gin.SetMode(gin.TestMode)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tokens := identity.NewUserTokenIssuer(key, "http://test", time.Hour)
	h := handler.NewAuthHandler(svc, tokens, nil, zap.NewNop())
	bonus := &fakeBonus{}
	h.SetDailyBonus(bonus)
	r := gin.New()
	h.Register(r.Group("/v1"))

	signupBody := `{"email":"ada@example.com","password":"correct-password"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewBufferString(signupBody))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	loginBody := `{"email":"ada@example.com","password":"correct-password"}`
	req2 := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewBufferString(loginBody))
	req2.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req2)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(bonus.credited) != 1 {
		t.Fatalf("expected exactly one daily bonus credit on login, got %d", len(bonus.credited))
	}
}

func TestPublicProfile_NotFoundForPrivateAccount(t *testing.T) {
	router := authTestRouter(t, newFakeUserSvc())

	req := httptest.NewRequest(http.MethodGet, "/v1/users/nobody", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLogin_RejectsWrongPassword(t *testing.T) {
	svc := newFakeUserSvc()
	router := authTestRouter(t, svc)

	signupBody := `{"email":"ada@example.com","password":"correct-password"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewBufferString(signupBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)

	loginBody := `{"email":"ada@example.com","password":"wrong"}`
	req2 := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewBufferString(loginBody))
	req2.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req2)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestVerifyEmail_Succeeds(t *testing.T) {
	svc := newFakeUserSvc()
	router := authTestRouter(t, svc)

	signupBody := `{"email":"ada@example.com","password":"correct-password"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewBufferString(signupBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)

	req2 := httptest.NewRequest(http.MethodPost, "/v1/auth/verify-email?token=verify-token", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req2)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestForgotPassword_AlwaysReturns200(t *testing.T) {
	router := authTestRouter(t, newFakeUserSvc())

	body := `{"email":"nobody@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/forgot-password", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 regardless of account existence, got %d: %s", w.Code, w.Body.String())
	}
}

func TestResetPassword_RejectsUnknownToken(t *testing.T) {
	router := authTestRouter(t, newFakeUserSvc())

	body := `{"token":"bogus","password":"newpass"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/reset-password", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestOAuthRedirect_UnconfiguredProviderReturns422(t *testing.T) {
	router := authTestRouter(t, newFakeUserSvc())

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/oauth/github", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLogout_Returns200(t *testing.T) {
	router := authTestRouter(t, newFakeUserSvc())

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

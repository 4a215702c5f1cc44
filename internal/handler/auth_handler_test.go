package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/gamedex/internal/middleware"
	"github.com/hitoshi/gamedex/internal/model"
)

// mockAuthService はAuthServiceInterfaceのモック。
type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.User, string, error)
	getCurrentUserFn func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://id.twitch.tv/oauth2/authorize?state=" + state
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.User, string, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, "", fmt.Errorf("not implemented")
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		BaseURL:       "http://localhost:3000",
		CookieSecure:  false,
		SessionMaxAge: 604800,
	}
}

func findCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- Login のテスト ---

func TestLogin_RedirectsToProviderWithStateCookie(t *testing.T) {
	var receivedState string
	service := &mockAuthService{
		getLoginURLFn: func(state string) string {
			receivedState = state
			return "https://id.twitch.tv/oauth2/authorize?state=" + state
		},
	}

	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/twitch/login", nil)
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}

	location := resp.Header.Get("Location")
	if !strings.Contains(location, receivedState) {
		t.Errorf("Location %q should contain state %q", location, receivedState)
	}

	cookie := findCookie(t, resp, oauthStateCookie)
	if cookie == nil {
		t.Fatal("expected state cookie to be set")
	}
	if cookie.Value != receivedState {
		t.Errorf("cookie state = %q, want %q", cookie.Value, receivedState)
	}
	if !cookie.HttpOnly {
		t.Error("state cookie should be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("state cookie SameSite = %v, want Lax", cookie.SameSite)
	}
	if cookie.MaxAge != stateCookieMaxAge {
		t.Errorf("state cookie MaxAge = %d, want %d", cookie.MaxAge, stateCookieMaxAge)
	}
}

func TestLogin_GeneratesUniqueStatePerRequest(t *testing.T) {
	states := make(map[string]bool)
	service := &mockAuthService{
		getLoginURLFn: func(state string) string {
			states[state] = true
			return "https://id.twitch.tv/oauth2/authorize?state=" + state
		},
	}

	h := NewAuthHandler(service, testAuthConfig())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/auth/twitch/login", nil)
		w := httptest.NewRecorder()
		h.Login(w, req)
	}

	if len(states) != 3 {
		t.Errorf("expected 3 unique states, got %d", len(states))
	}
}

// --- Callback のテスト ---

func TestCallback_Success_SetsSessionCookieAndRedirects(t *testing.T) {
	now := time.Now()
	service := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.User, string, error) {
			if code != "auth-code-123" {
				t.Errorf("code = %q, want %q", code, "auth-code-123")
			}
			user := &model.User{
				ID:        "user-1",
				TwitchID:  "twitch-42",
				Username:  "gamer_taro",
				CreatedAt: now,
				UpdatedAt: now,
			}
			return user, "signed.jwt.token", nil
		},
	}

	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/twitch/callback?code=auth-code-123&state=state-xyz", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-xyz"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}

	if location := resp.Header.Get("Location"); location != "http://localhost:3000" {
		t.Errorf("Location = %q, want %q", location, "http://localhost:3000")
	}

	sessionCookie := findCookie(t, resp, middleware.SessionCookieName)
	if sessionCookie == nil {
		t.Fatal("expected session cookie to be set")
	}
	if sessionCookie.Value != "signed.jwt.token" {
		t.Errorf("session cookie value = %q, want token", sessionCookie.Value)
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if sessionCookie.MaxAge != 604800 {
		t.Errorf("session cookie MaxAge = %d, want 604800", sessionCookie.MaxAge)
	}
	if sessionCookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("session cookie SameSite = %v, want Lax", sessionCookie.SameSite)
	}

	// stateクッキーは削除されていること
	stateCookie := findCookie(t, resp, oauthStateCookie)
	if stateCookie == nil || stateCookie.MaxAge != -1 {
		t.Error("state cookie should be cleared after callback")
	}
}

func TestCallback_StateMismatch_Returns400(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.User, string, error) {
			t.Fatal("HandleCallback should not be called on state mismatch")
			return nil, "", nil
		},
	}

	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/twitch/callback?code=xxx&state=attacker-state", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "real-state"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if body := w.Body.String(); !strings.Contains(body, "invalid state parameter") {
		t.Errorf("body = %q, want to contain %q", body, "invalid state parameter")
	}
}

func TestCallback_MissingStateCookie_Returns400(t *testing.T) {
	service := &mockAuthService{}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/twitch/callback?code=xxx&state=some-state", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestCallback_MissingCode_Returns400(t *testing.T) {
	service := &mockAuthService{}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/twitch/callback?state=state-xyz", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-xyz"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if body := w.Body.String(); !strings.Contains(body, "missing authorization code") {
		t.Errorf("body = %q, want to contain %q", body, "missing authorization code")
	}
}

func TestCallback_ExchangeFailure_Returns500(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.User, string, error) {
			return nil, "", fmt.Errorf("token exchange failed: status 403")
		},
	}

	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/twitch/callback?code=bad-code&state=state-xyz", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-xyz"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}

// --- Logout のテスト ---

func TestLogout_ClearsSessionCookie(t *testing.T) {
	service := &mockAuthService{}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "some.jwt.token"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	cookie := findCookie(t, resp, middleware.SessionCookieName)
	if cookie == nil {
		t.Fatal("expected session cookie to be cleared")
	}
	if cookie.Value != "" || cookie.MaxAge != -1 {
		t.Errorf("session cookie should be cleared: value=%q maxAge=%d", cookie.Value, cookie.MaxAge)
	}
}

func TestLogout_WithoutSessionCookie_StillSucceeds(t *testing.T) {
	service := &mockAuthService{}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}

// --- Me のテスト ---

func TestMe_ReturnsCurrentUser(t *testing.T) {
	service := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, userID string) (*model.User, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			return &model.User{
				ID:        "user-1",
				TwitchID:  "twitch-42",
				Username:  "gamer_taro",
				Email:     "taro@example.com",
				AvatarURL: "https://static.twitchcdn.net/avatar.png",
			}, nil
		},
	}

	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(middleware.ContextWithUser(req.Context(), "user-1", "gamer_taro"))
	w := httptest.NewRecorder()

	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body userResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.ID != "user-1" {
		t.Errorf("id = %q, want %q", body.ID, "user-1")
	}
	if body.Username != "gamer_taro" {
		t.Errorf("username = %q, want %q", body.Username, "gamer_taro")
	}
	if body.TwitchID != "twitch-42" {
		t.Errorf("twitch_id = %q, want %q", body.TwitchID, "twitch-42")
	}
}

func TestMe_WithoutUserInContext_Returns401(t *testing.T) {
	service := &mockAuthService{}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["code"] != "UNAUTHENTICATED" {
		t.Errorf("code = %q, want %q", body["code"], "UNAUTHENTICATED")
	}
}

func TestMe_UserLookupFails_Returns401(t *testing.T) {
	service := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, userID string) (*model.User, error) {
			return nil, fmt.Errorf("user not found")
		},
	}

	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(middleware.ContextWithUser(req.Context(), "ghost-user", "ghost"))
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

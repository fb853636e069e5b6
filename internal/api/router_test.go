package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"sentinel-panel/internal/activity"
	"sentinel-panel/internal/auth"
	"sentinel-panel/internal/command"
	"sentinel-panel/internal/session"
	"sentinel-panel/internal/stats"
	"sentinel-panel/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type fakeProvider struct{}

func (fakeProvider) AuthCodeURL(state string) string {
	return "https://discord.test/authorize?state=" + url.QueryEscape(state)
}

func (fakeProvider) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if code == "bad" {
		return nil, auth.ErrTokenExchangeFailed
	}
	return &oauth2.Token{AccessToken: "access", Expiry: time.Now().Add(time.Hour)}, nil
}

func (fakeProvider) FetchUser(context.Context, *oauth2.Token) (session.User, error) {
	return session.User{ID: "42", Username: "alice"}, nil
}

func (fakeProvider) FetchGuilds(context.Context, *oauth2.Token) ([]session.Guild, error) {
	return []session.Guild{{ID: "g1", Name: "One", Permissions: 0x20}}, nil
}

type fakeSource struct{ ready bool }

func (f fakeSource) Ready() bool { return f.ready }
func (f fakeSource) Guilds() []stats.Guild {
	return []stats.Guild{{ID: "g1", Name: "One", MemberCount: 7}, {ID: "g2", MemberCount: 3}}
}
func (f fakeSource) Uptime() time.Duration  { return 90 * time.Minute }
func (f fakeSource) Latency() time.Duration { return 20 * time.Millisecond }

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

type apiHarness struct {
	router *gin.Engine
	store  *session.Store
	clock  *fakeClock
}

func newAPIHarness(t *testing.T, ready bool) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := &fakeClock{now: time.Now()}
	store := session.NewStore(10 * time.Minute)
	store.WithClock(clock)

	db, err := storage.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(context.Background()))
	activityLog := activity.NewLogger(db, zap.NewNop())
	activityLog.Record(context.Background(), activity.TypeCommand, "help in g1", "g1", "42")
	activityLog.Record(context.Background(), activity.TypeCommand, "help in g2", "g2", "7")

	registry := command.NewRegistry()
	registry.MustRegister(command.Descriptor{
		Name:        "help",
		Description: "List commands",
		Handler:     command.HandlerFunc(func(context.Context, *command.Context) error { return nil }),
	})

	router := NewRouter(Config{
		BasePath:       "/api",
		DashboardURL:   "http://localhost:5173",
		AllowedOrigins: []string{"http://localhost:5173"},
		CookieName:     "session",
	}, Deps{
		Auth:     auth.NewService(store, fakeProvider{}, zap.NewNop()),
		Gate:     auth.NewGate(store),
		Stats:    stats.New(fakeSource{ready: ready}, registry),
		Registry: registry,
		Activity: activityLog,
		Logger:   zap.NewNop(),
	})
	return &apiHarness{router: router, store: store, clock: clock}
}

func (h *apiHarness) do(method, target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *apiHarness) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := h.do(http.MethodGet, "/api/auth/login", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		AuthURL string `json:"authUrl"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	parsed, err := url.Parse(body.AuthURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	rec = h.do(http.MethodGet, "/api/auth/callback?code=ok&state="+url.QueryEscape(state), nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "session", cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	require.Equal(t, 7*24*60*60, cookies[0].MaxAge)
	return cookies[0]
}

func TestLoginFlowAndMe(t *testing.T) {
	h := newAPIHarness(t, true)
	cookie := h.login(t)

	rec := h.do(http.MethodGet, "/api/auth/me", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		User   session.User    `json:"user"`
		Guilds []session.Guild `json:"guilds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "42", body.User.ID)
	require.Len(t, body.Guilds, 1)
}

func TestCallbackErrorsRedirectWithCode(t *testing.T) {
	h := newAPIHarness(t, true)

	rec := h.do(http.MethodGet, "/api/auth/callback?code=ok&state=forged", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "http://localhost:5173?error=invalid_or_expired_state", rec.Header().Get("Location"))
	require.Empty(t, rec.Result().Cookies())

	rec = h.do(http.MethodGet, "/api/auth/callback?error=access_denied", nil)
	require.Equal(t, "http://localhost:5173?error=oauth_provider_error", rec.Header().Get("Location"))

	rec = h.do(http.MethodGet, "/api/auth/callback?state=x", nil)
	require.Equal(t, "http://localhost:5173?error=missing_code", rec.Header().Get("Location"))
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	h := newAPIHarness(t, true)

	for _, path := range []string{"/api/stats", "/api/guilds", "/api/commands", "/api/activity"} {
		rec := h.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		require.Contains(t, rec.Body.String(), "Authentication required")
	}

	rec := h.do(http.MethodGet, "/api/auth/me", &http.Cookie{Name: "session", Value: "nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnauthorizedBodyShape(t *testing.T) {
	h := newAPIHarness(t, true)

	cases := map[string]map[string]string{
		"/api/stats":   {"error": "Authentication required", "code": "unauthenticated"},
		"/api/auth/me": {"error": "Not authenticated", "code": "unauthenticated"},
	}
	for path, want := range cases {
		rec := h.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), path)
		require.Equal(t, want, body, path)
	}
}

func TestExpiredSessionClearsCookie(t *testing.T) {
	h := newAPIHarness(t, true)
	cookie := h.login(t)

	h.clock.now = h.clock.now.Add(2 * time.Hour)
	rec := h.do(http.MethodGet, "/api/stats", cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "session_expired")
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	require.True(t, cleared[0].MaxAge < 0)
	require.Equal(t, 0, h.store.SessionCount())

	rec = h.do(http.MethodGet, "/api/stats", cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "unauthenticated")
}

func TestDashboardEndpoints(t *testing.T) {
	h := newAPIHarness(t, true)
	cookie := h.login(t)

	rec := h.do(http.MethodGet, "/api/stats", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var report stats.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, 1, report.Guilds)
	require.Equal(t, 7, report.Users)
	require.Equal(t, 2, report.TotalGuilds)
	require.Equal(t, "1h 30m", report.Uptime)

	rec = h.do(http.MethodGet, "/api/guilds", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var guilds []stats.GuildView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &guilds))
	require.Len(t, guilds, 1)
	require.True(t, guilds[0].UserCanManage)

	rec = h.do(http.MethodGet, "/api/commands", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"usage":"/help"`)
	require.Contains(t, rec.Body.String(), `"category":"General"`)

	rec = h.do(http.MethodGet, "/api/activity", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []storage.Activity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "g1", rows[0].GuildID)
}

func TestStatsNotReady(t *testing.T) {
	h := newAPIHarness(t, false)
	cookie := h.login(t)

	rec := h.do(http.MethodGet, "/api/stats", cookie)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = h.do(http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"offline"`)
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	h := newAPIHarness(t, true)

	rec := h.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true}`, rec.Body.String())

	cookie := h.login(t)
	rec = h.do(http.MethodPost, "/api/auth/logout", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, h.store.SessionCount())

	rec = h.do(http.MethodGet, "/api/auth/me", cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newAPIHarness(t, true)

	req := httptest.NewRequest(http.MethodOptions, "/api/stats", nil)
	req.Header.Set("Origin", "http://LOCALHOST:5173")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDHeader(t *testing.T) {
	h := newAPIHarness(t, true)
	rec := h.do(http.MethodGet, "/api/health", nil)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.False(t, strings.Contains(rec.Header().Get("X-Request-ID"), " "))
}

func TestNormalizeOrigin(t *testing.T) {
	got, ok := normalizeOrigin("https://BÜCHER.example:8443/path")
	require.True(t, ok)
	require.Equal(t, "https://xn--bcher-kva.example:8443", got)

	_, ok = normalizeOrigin("not a url")
	require.False(t, ok)
}

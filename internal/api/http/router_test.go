package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/hms-gateway/internal/api/http/handlers"
	"github.com/spec-kit/hms-gateway/internal/auth"
	"github.com/spec-kit/hms-gateway/internal/config"
	"github.com/spec-kit/hms-gateway/internal/dashboard"
	"github.com/spec-kit/hms-gateway/internal/events"
	"github.com/spec-kit/hms-gateway/internal/guard"
	"github.com/spec-kit/hms-gateway/internal/identity"
	"github.com/spec-kit/hms-gateway/internal/observability"
	"github.com/spec-kit/hms-gateway/internal/persistence"
	"github.com/spec-kit/hms-gateway/internal/realtime"
	"github.com/spec-kit/hms-gateway/internal/repository"
	"github.com/spec-kit/hms-gateway/internal/service"
	"github.com/spec-kit/hms-gateway/internal/session"
)

var testSessionCfg = config.SessionConfig{
	AccessCookie:         "hms-access-token",
	RefreshCookie:        "hms-refresh-token",
	RefreshTTLHours:      1,
	RefreshWindowSeconds: 60,
	LoginPath:            "/auth/login",
}

type testServer struct {
	app *fiber.App
	hub *realtime.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	client := identity.NewLocalClient(config.IdentityConfig{
		LocalJWTSecret:       "test-secret",
		LocalTokenTTLMinutes: 15,
		LocalBcryptCost:      4,
	})
	repo := repository.NewMemoryStaffRepository()
	dispatcher := events.NewInMemoryDispatcher()
	hub := realtime.NewHub(rdb, "hms:changes:", logger, metrics)
	service.NewChangeNotifier(dispatcher, hub, logger).RegisterHandlers()

	resolver := service.NewProfileResolver(repo, dispatcher, logger, metrics)
	authService := service.NewAuthService(service.AuthDependencies{
		Client:     client,
		StaffRepo:  repo,
		Resolver:   resolver,
		Dispatcher: dispatcher,
	}, logger)
	staffService := service.NewStaffService(repo, dispatcher, logger)
	router := dashboard.NewRouter(logger, metrics)
	cookies := session.NewCookies(testSessionCfg)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:    handlers.NewHealthHandler("hms-gateway", "test", nil, &persistence.Redis{Client: rdb}, client),
		Auth:      handlers.NewAuthHandler("hms-gateway", authService, router, cookies),
		Dashboard: handlers.NewDashboardHandler(router),
		Staff:     handlers.NewStaffHandler(staffService),
		Changes:   handlers.NewChangesHandler(hub, router, time.Second, logger),
		Guard:     guard.New(testSessionCfg, client, logger, metrics),
		Profiles:  auth.NewProfileMiddleware(resolver),
		Roles:     router,
		Metrics:   metrics,
	})
	return &testServer{app: app, hub: hub}
}

type response struct {
	status  int
	cookies []*http.Cookie
	header  http.Header
	body    map[string]any
}

func (s *testServer) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{status: resp.StatusCode, cookies: resp.Cookies(), header: resp.Header}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out.body))
	}
	return out
}

func (r response) cookie(name string) *http.Cookie {
	for _, ck := range r.cookies {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func (r response) errorCode() string {
	errBody, _ := r.body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func (r response) data() map[string]any {
	data, _ := r.body["data"].(map[string]any)
	return data
}

func (s *testServer) signupAndLogin(t *testing.T, email, role string) *http.Cookie {
	t.Helper()
	signup := s.do(t, http.MethodPost, "/auth/signup", `{"email":"`+email+`","password":"secret1","confirm_password":"secret1","full_name":"Test `+role+`","role":"`+role+`"}`)
	require.Equal(t, http.StatusCreated, signup.status, signup.body)

	login := s.do(t, http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"secret1","role":"`+role+`"}`)
	require.Equal(t, http.StatusOK, login.status, login.body)
	access := login.cookie("hms-access-token")
	require.NotNil(t, access)
	return &http.Cookie{Name: access.Name, Value: access.Value}
}

func TestRoutes_Guard(t *testing.T) {
	s := newTestServer(t)

	t.Run("Should redirect anonymous dashboard requests to login", func(t *testing.T) {
		for _, path := range []string{"/dashboard", "/dashboard/staff", "/dashboard/modules/overview"} {
			resp := s.do(t, http.MethodGet, path, "")
			assert.Equal(t, http.StatusFound, resp.status, path)
			assert.Equal(t, "/auth/login", resp.header.Get("Location"), path)
		}
	})

	t.Run("Should serve public pages without a session", func(t *testing.T) {
		for _, path := range []string{"/", "/auth/login", "/auth/signup-success", "/health/live", "/metrics"} {
			resp := s.do(t, http.MethodGet, path, "")
			assert.Equal(t, http.StatusOK, resp.status, path)
		}
	})

	t.Run("Should report readiness with the memory store", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/health/ready", "")
		assert.Equal(t, http.StatusOK, resp.status)
		deps, _ := resp.body["dependencies"].(map[string]any)
		assert.Equal(t, "disabled", deps["postgres"])
		assert.Equal(t, "ok", deps["redis"])
	})
}

func TestRoutes_Login(t *testing.T) {
	s := newTestServer(t)
	doctor := s.signupAndLogin(t, "doc@hms.local", "doctor")

	t.Run("Should render the doctor dashboard", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/dashboard", "", doctor)
		require.Equal(t, http.StatusOK, resp.status)
		view, _ := resp.data()["view"].(map[string]any)
		assert.Equal(t, "doctor", view["role"])
		user, _ := resp.data()["user"].(map[string]any)
		assert.Equal(t, "Test doctor", user["full_name"])
	})

	t.Run("Should refuse a mismatched role without setting cookies", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/auth/login", `{"email":"doc@hms.local","password":"secret1","role":"nurse"}`)
		assert.Equal(t, http.StatusForbidden, resp.status)
		assert.Equal(t, "ROLE_MISMATCH", resp.errorCode())
		assert.Nil(t, resp.cookie("hms-access-token"))
	})

	t.Run("Should pass bad credentials through as authentication failures", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/auth/login", `{"email":"doc@hms.local","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.status)
		assert.Equal(t, "AUTHENTICATION_FAILED", resp.errorCode())
	})

	t.Run("Should validate payloads", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/auth/login", `{"email":"nope","password":""}`)
		assert.Equal(t, http.StatusBadRequest, resp.status)
		assert.Equal(t, "VALIDATION_FAILED", resp.errorCode())

		resp = s.do(t, http.MethodPost, "/auth/login", `{not json`)
		assert.Equal(t, http.StatusBadRequest, resp.status)
		assert.Equal(t, "VALIDATION_FAILED", resp.errorCode())
	})

	t.Run("Should enforce module capabilities", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/dashboard/modules/opd", "", doctor).status)

		resp := s.do(t, http.MethodGet, "/dashboard/modules/users", "", doctor)
		assert.Equal(t, http.StatusForbidden, resp.status)
		assert.Equal(t, "FORBIDDEN", resp.errorCode())

		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/dashboard/modules/payroll", "", doctor).status)
		assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/dashboard/staff", "", doctor).status)
	})

	t.Run("Should refuse change feeds outside the role's modules", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/dashboard/changes/billing", "", doctor).status)
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/dashboard/changes/payroll", "", doctor).status)
		assert.Equal(t, int64(0), s.hub.OpenSubscriptions())
	})

	t.Run("Should clear both cookies on logout", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/auth/logout", "", doctor)
		assert.Equal(t, http.StatusOK, resp.status)
		for _, name := range []string{"hms-access-token", "hms-refresh-token"} {
			cleared := resp.cookie(name)
			require.NotNil(t, cleared, name)
			assert.Empty(t, cleared.Value, name)
		}
	})
}

func TestRoutes_Signup(t *testing.T) {
	s := newTestServer(t)

	t.Run("Should reject mismatched password confirmation", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/auth/signup", `{"email":"nurse@hms.local","password":"secret1","confirm_password":"secret2","full_name":"N","role":"nurse"}`)
		assert.Equal(t, http.StatusBadRequest, resp.status)
		assert.Equal(t, "VALIDATION_FAILED", resp.errorCode())
	})

	t.Run("Should issue a session when no confirmation is required", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/auth/signup", `{"email":"rx@hms.local","password":"secret1","confirm_password":"secret1","full_name":"Rx","role":"pharmacist","department":"Pharmacy"}`)
		require.Equal(t, http.StatusCreated, resp.status)
		assert.Equal(t, false, resp.data()["confirmation_pending"])
		assert.Equal(t, "/dashboard", resp.data()["redirect"])
		assert.NotNil(t, resp.cookie("hms-access-token"))
	})
}

func TestRoutes_StaffAdministration(t *testing.T) {
	s := newTestServer(t)
	admin := s.signupAndLogin(t, "admin@hms.local", "admin")
	s.signupAndLogin(t, "nurse@hms.local", "nurse")

	list := s.do(t, http.MethodGet, "/dashboard/staff?role=nurse", "", admin)
	require.Equal(t, http.StatusOK, list.status)
	items, _ := list.body["data"].([]any)
	require.Len(t, items, 1)
	nurseID, _ := items[0].(map[string]any)["id"].(string)
	require.NotEmpty(t, nurseID)

	t.Run("Should deactivate a staff member", func(t *testing.T) {
		resp := s.do(t, http.MethodPatch, "/dashboard/staff/"+nurseID, `{"is_active":false}`, admin)
		require.Equal(t, http.StatusOK, resp.status)
		assert.Equal(t, false, resp.data()["is_active"])

		login := s.do(t, http.MethodPost, "/auth/login", `{"email":"nurse@hms.local","password":"secret1"}`)
		assert.Equal(t, http.StatusForbidden, login.status)
		assert.Equal(t, "ACCOUNT_DEACTIVATED", login.errorCode())
	})

	t.Run("Should reject invalid roles", func(t *testing.T) {
		resp := s.do(t, http.MethodPatch, "/dashboard/staff/"+nurseID, `{"role":"janitor"}`, admin)
		assert.Equal(t, http.StatusBadRequest, resp.status)
	})

	t.Run("Should reject bad list filters", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/dashboard/staff?active=maybe", "", admin).status)
	})
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/result-service/internal/api/http/handlers"
	"github.com/spec-kit/result-service/internal/auth"
	"github.com/spec-kit/result-service/internal/config"
	"github.com/spec-kit/result-service/internal/domain"
	"github.com/spec-kit/result-service/internal/events"
	"github.com/spec-kit/result-service/internal/observability"
	"github.com/spec-kit/result-service/internal/repository"
	"github.com/spec-kit/result-service/internal/service"
)

const loginLimit = 5

type testServer struct {
	app    *fiber.App
	auth   *service.AuthService
	redis  *miniredis.Miniredis
	tokens map[domain.Role]string
	ids    map[domain.Role]int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	identities := repository.NewMemoryIdentityRepository()
	results := repository.NewMemoryResultRepository()
	dispatcher := events.NewInMemoryDispatcher(logger)
	service.NewNotificationService(dispatcher, events.NewRedisOutbox(client, "results:events"), logger).RegisterHandlers()

	authService, err := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "integration-secret",
		JWTIssuer:             "result-service",
		AccessTokenTTLMinutes: 30,
		BcryptCost:            bcrypt.MinCost,
	}, service.AuthDependencies{IdentityRepo: identities, Logger: logger, Metrics: metrics})
	require.NoError(t, err)
	resultService := service.NewResultService(service.ResultDependencies{
		ResultRepo:   results,
		IdentityRepo: identities,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("result-service", "test", nil, map[string]handlers.Pinger{"redis": redisPinger{client}}),
		Auth:           handlers.NewAuthHandler(authService),
		Results:        handlers.NewResultsHandler(resultService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
		LoginLimiter:   NewLoginRateLimiter(client, loginLimit, time.Minute, logger),
		Metrics:        adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	})

	s := &testServer{app: app, auth: authService, redis: mr, tokens: map[domain.Role]string{}, ids: map[domain.Role]int64{}}
	for _, role := range domain.AllRoles {
		body := map[string]any{
			"role": role, "name": string(role), "email": string(role) + "@uni.edu", "password": "secret1",
			"staff_number": "S-" + string(role), "department": "Physics", "faculty": "Science",
		}
		if role == domain.RoleStudent {
			body = map[string]any{
				"role": role, "name": "student", "email": "student@uni.edu", "password": "secret1",
				"enrollment_number": "MAT-1", "program": "Physics", "level": 100,
			}
		}
		status, resp := s.do(t, http.MethodPost, "/auth/register", "", body)
		require.Equal(t, http.StatusCreated, status, resp)
		s.ids[role] = int64(resp["data"].(map[string]any)["id"].(float64))
		token, _, err := authService.TokenManager().GenerateToken(s.ids[role], role)
		require.NoError(t, err)
		s.tokens[role] = token
	}
	return s
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	status, resp := s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": email, "password": password})
	require.Equal(t, http.StatusOK, status, resp)
	return resp["data"].(map[string]any)["auth"].(map[string]any)["token"].(string)
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	decoded := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func errorCode(resp map[string]any) string {
	errBody, ok := resp["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := errBody["code"].(string)
	return code
}

func (s *testServer) upload(t *testing.T, rows ...map[string]any) []int64 {
	t.Helper()
	status, resp := s.do(t, http.MethodPost, "/results", s.tokens[domain.RoleLecturer], rows)
	require.Equal(t, http.StatusCreated, status, resp)
	var ids []int64
	for _, item := range resp["data"].([]any) {
		ids = append(ids, int64(item.(map[string]any)["id"].(float64)))
	}
	return ids
}

func (s *testServer) row() map[string]any {
	return map[string]any{
		"studentId": s.ids[domain.RoleStudent], "courseId": 1,
		"caScore": 25, "examScore": 60, "term": "Fall", "year": 2025,
	}
}

func TestExampleScenarioOverHTTP(t *testing.T) {
	s := newTestServer(t)

	status, resp := s.do(t, http.MethodPost, "/results", s.tokens[domain.RoleLecturer], []map[string]any{s.row()})
	require.Equal(t, http.StatusCreated, status, resp)
	created := resp["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "draft", created["status"])
	assert.Equal(t, float64(s.ids[domain.RoleLecturer]), created["lecturerId"])
	id := int64(created["id"].(float64))
	ids := map[string]any{"ids": []int64{id}}

	status, resp = s.do(t, http.MethodPut, "/results/submit", s.tokens[domain.RoleLecturer], ids)
	require.Equal(t, http.StatusOK, status, resp)
	assert.Equal(t, "submitted", resp["data"].(map[string]any)["status"])
	assert.Equal(t, 1.0, resp["data"].(map[string]any)["count"])

	status, resp = s.do(t, http.MethodPut, "/results/department-approve", s.tokens[domain.RoleLecturer], ids)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(resp))

	status, resp = s.do(t, http.MethodPut, "/results/department-approve", s.tokens[domain.RoleHOD], ids)
	require.Equal(t, http.StatusOK, status, resp)
	assert.Equal(t, "dept_approved", resp["data"].(map[string]any)["status"])

	status, resp = s.do(t, http.MethodPut, "/results/final-approve", s.tokens[domain.RoleExamOfficer], ids)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(resp))
	rejected := resp["error"].(map[string]any)["details"].(map[string]any)["rejected"].([]any)
	assert.Equal(t, "dept_approved", rejected[0].(map[string]any)["status"])

	status, resp = s.do(t, http.MethodGet, fmt.Sprintf("/results/%d/history", id), s.tokens[domain.RoleLecturer], nil)
	require.Equal(t, http.StatusOK, status, resp)
	assert.Len(t, resp["data"], 2)

	queued, err := s.redis.List("results:events")
	require.NoError(t, err)
	assert.Len(t, queued, 3)
}

func TestRoleGateDeniesEveryUnlistedPairing(t *testing.T) {
	s := newTestServer(t)

	routes := map[auth.Operation]struct {
		method, path string
		body         any
	}{
		auth.OpUploadResults:     {http.MethodPost, "/results", []map[string]any{s.row()}},
		auth.OpSubmitResults:     {http.MethodPut, "/results/submit", map[string]any{"ids": []int{1}}},
		auth.OpDepartmentApprove: {http.MethodPut, "/results/department-approve", map[string]any{"ids": []int{1}}},
		auth.OpFacultyApprove:    {http.MethodPut, "/results/faculty-approve", map[string]any{"ids": []int{1}}},
		auth.OpFinalApprove:      {http.MethodPut, "/results/final-approve", map[string]any{"ids": []int{1}}},
		auth.OpListOwnResults:    {http.MethodGet, "/results/mine", nil},
		auth.OpListPending:       {http.MethodGet, "/results/pending", nil},
		auth.OpViewStudentResult: {http.MethodGet, fmt.Sprintf("/results/student/%d", s.ids[domain.RoleStudent]), nil},
		auth.OpViewHistory:       {http.MethodGet, "/results/1/history", nil},
		auth.OpViewProfile:       {http.MethodGet, "/auth/me", nil},
	}
	require.Len(t, routes, len(auth.Policy))

	for op, route := range routes {
		for _, role := range domain.AllRoles {
			if auth.Allowed(op, role) {
				continue
			}
			t.Run(fmt.Sprintf("%s/%s", op, role), func(t *testing.T) {
				status, resp := s.do(t, route.method, route.path, s.tokens[role], route.body)
				assert.Equal(t, http.StatusForbidden, status)
				assert.Equal(t, "FORBIDDEN", errorCode(resp))
			})
		}
	}
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)

	t.Run("duplicate email any case", func(t *testing.T) {
		status, resp := s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
			"role": "lecturer", "name": "Dup", "email": "LECTURER@UNI.EDU", "password": "secret1",
			"staff_number": "S-dup", "department": "Physics",
		})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "CONFLICT", errorCode(resp))
	})

	t.Run("validation", func(t *testing.T) {
		status, resp := s.do(t, http.MethodPost, "/auth/register", "", map[string]any{"role": "wizard"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(resp))
	})

	t.Run("login does not reveal which field was wrong", func(t *testing.T) {
		s.redis.FlushAll()
		_, wrongPassword := s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "dean@uni.edu", "password": "nope-nope"})
		_, unknownEmail := s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "nobody@uni.edu", "password": "secret1"})
		assert.Equal(t, wrongPassword, unknownEmail)
		assert.Equal(t, "UNAUTHORIZED", errorCode(wrongPassword))
	})

	t.Run("login issues a working token", func(t *testing.T) {
		s.redis.FlushAll()
		token := s.login(t, "Student@Uni.edu", "secret1")
		status, resp := s.do(t, http.MethodGet, "/auth/me", token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(s.ids[domain.RoleStudent]), resp["data"].(map[string]any)["id"])
	})

	t.Run("login missing fields", func(t *testing.T) {
		s.redis.FlushAll()
		status, _ := s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "dean@uni.edu"})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("me never returns password hash", func(t *testing.T) {
		status, resp := s.do(t, http.MethodGet, "/auth/me", s.tokens[domain.RoleDean], nil)
		require.Equal(t, http.StatusOK, status)
		data := resp["data"].(map[string]any)
		assert.Equal(t, "dean", data["role"])
		assert.NotContains(t, data, "password_hash")
		assert.NotContains(t, data, "PasswordHash")
	})

	t.Run("missing and invalid tokens", func(t *testing.T) {
		status, resp := s.do(t, http.MethodGet, "/results/mine", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "missing token", resp["error"].(map[string]any)["message"])

		status, resp = s.do(t, http.MethodGet, "/results/mine", "not.a.token", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "invalid token", resp["error"].(map[string]any)["message"])
	})
}

func TestLoginIsRateLimited(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"email": "dean@uni.edu", "password": "wrong-one"}

	for i := 0; i < loginLimit; i++ {
		status, _ := s.do(t, http.MethodPost, "/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, status)
	}
	status, resp := s.do(t, http.MethodPost, "/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", errorCode(resp))

	s.redis.FastForward(time.Minute + time.Second)
	status, _ = s.do(t, http.MethodPost, "/auth/login", "", body)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginFailsOpenWithoutRedis(t *testing.T) {
	s := newTestServer(t)
	s.redis.Close()

	for i := 0; i < loginLimit+2; i++ {
		status, _ := s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "dean@uni.edu", "password": "secret1"})
		require.Equal(t, http.StatusOK, status)
	}
}

func TestBatchBodyValidation(t *testing.T) {
	s := newTestServer(t)
	token := s.tokens[domain.RoleLecturer]

	for _, body := range []string{`{}`, `{"ids":5}`, `{"ids":"1"}`, `{"ids":[]}`, `{"ids":[0]}`, `not json`} {
		status, resp := s.do(t, http.MethodPut, "/results/submit", token, body)
		assert.Equal(t, http.StatusBadRequest, status, body)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(resp), body)
	}

	status, resp := s.do(t, http.MethodPost, "/results", token, `{"studentId":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(resp))
}

func TestStudentSeesOnlyOwnPublishedResults(t *testing.T) {
	s := newTestServer(t)
	ids := s.upload(t, s.row(), s.row())
	batch := map[string]any{"ids": ids[:1]}

	for _, step := range []struct {
		path string
		role domain.Role
	}{
		{"/results/submit", domain.RoleLecturer},
		{"/results/department-approve", domain.RoleHOD},
		{"/results/faculty-approve", domain.RoleDean},
		{"/results/final-approve", domain.RoleExamOfficer},
	} {
		status, resp := s.do(t, http.MethodPut, step.path, s.tokens[step.role], batch)
		require.Equal(t, http.StatusOK, status, resp)
	}

	studentPath := fmt.Sprintf("/results/student/%d", s.ids[domain.RoleStudent])
	status, resp := s.do(t, http.MethodGet, studentPath, s.tokens[domain.RoleStudent], nil)
	require.Equal(t, http.StatusOK, status)
	data := resp["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "published", data[0].(map[string]any)["status"])

	status, _ = s.do(t, http.MethodGet, fmt.Sprintf("/results/student/%d", s.ids[domain.RoleStudent]+100), s.tokens[domain.RoleStudent], nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, resp := s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", resp["status"])

	status, resp = s.do(t, http.MethodGet, "/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(resp))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	httpResp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer httpResp.Body.Close()
	body, err := io.ReadAll(httpResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "http_requests_total")

	s.redis.Close()
	status, resp = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status, "redis consumers fail open")
	assert.Equal(t, "degraded", resp["status"])
	assert.NotEqual(t, "ok", resp["dependencies"].(map[string]any)["redis"])
}

func TestReadinessFailsOnRequiredDependency(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, 0)
	health := handlers.NewHealthHandler("result-service", "test", map[string]handlers.Pinger{"postgres": downPinger{}}, nil)
	app.Get("/health/ready", health.Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPanicsRenderInternalError(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, 0)
	app.Get("/boom", func(*fiber.Ctx) error { panic("kaboom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "INTERNAL_ERROR")
	assert.NotContains(t, string(body), "kaboom")
}

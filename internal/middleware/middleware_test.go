package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/promptforge/api/internal/models"
	"github.com/promptforge/api/internal/repository"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var body struct {
		Error APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestAuth_ValidTokenSetsUser(t *testing.T) {
	userID := uuid.New()
	token, expiresAt, err := IssueToken(testSecret, userID, "alice", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	router := gin.New()
	router.GET("/me", Auth(testSecret), func(c *gin.Context) {
		id, ok := GetUserID(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.String())
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())
}

func TestAuth_Rejects(t *testing.T) {
	expired, _, err := IssueToken(testSecret, uuid.New(), "bob", -time.Minute)
	require.NoError(t, err)
	foreign, _, err := IssueToken("other-secret", uuid.New(), "bob", time.Hour)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Token abc",
		"garbage":      "Bearer abc.def.ghi",
		"expired":      "Bearer " + expired,
		"wrong secret": "Bearer " + foreign,
	} {
		t.Run(name, func(t *testing.T) {
			router := gin.New()
			router.GET("/me", Auth(testSecret), func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, ErrCodeUnauthorized, decodeError(t, w).Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestCORS_Preflight(t *testing.T) {
	router := gin.New()
	router.Use(CORS())
	router.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

var brokenSessionID = uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff")

type stubSessions map[uuid.UUID]*models.Session

func (s stubSessions) GetActiveSession(_ context.Context, id uuid.UUID) (*models.Session, error) {
	if id == brokenSessionID {
		return nil, errors.New("db down")
	}
	sess, ok := s[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return sess, nil
}

func TestSessionAccess_RequireOwner(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	sess := &models.Session{ID: uuid.New(), UserID: owner, IsActive: true}
	access := NewSessionAccess(stubSessions{sess.ID: sess}, zap.NewNop())

	cases := []struct {
		name      string
		caller    uuid.UUID
		sessionID string
		want      int
	}{
		{"owner", owner, sess.ID.String(), http.StatusOK},
		{"stranger sees not found", stranger, sess.ID.String(), http.StatusNotFound},
		{"missing", owner, uuid.NewString(), http.StatusNotFound},
		{"invalid id", owner, "nope", http.StatusBadRequest},
		{"store error", owner, brokenSessionID.String(), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/s/:sessionId", func(c *gin.Context) {
				SetUserID(c, tc.caller)
				c.Next()
			}, access.RequireOwner(), func(c *gin.Context) {
				got, ok := GetSession(c)
				require.True(t, ok)
				assert.Equal(t, sess.ID, got.ID)
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/s/"+tc.sessionID, nil))

			assert.Equal(t, tc.want, w.Code)
		})
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestRateLimitMiddleware_SetsNumericHeaders(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter("model", 2, 1, time.Minute)
	rl.now = clock.now
	router := gin.New()
	router.GET("/", RateLimitMiddleware(rl), func(c *gin.Context) { c.Status(http.StatusOK) })

	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		last = httptest.NewRecorder()
		router.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, last.Code)
	}
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))

	clock.t = clock.t.Add(20 * time.Second)
	last = httptest.NewRecorder()
	router.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "model", last.Header().Get("X-RateLimit-Scope"))
	assert.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "40", last.Header().Get("Retry-After"))
	apiErr := decodeError(t, last)
	assert.Equal(t, ErrCodeRateLimited, apiErr.Code)
	assert.Equal(t, "too many model requests, please try again later", apiErr.Message)
	assert.Equal(t, 40_000, apiErr.RetryAfter)
}

func TestRateLimiter_RefillsPerPeriodAndCaps(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter("api", 3, 2, time.Minute)
	rl.now = clock.now

	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("u")
		require.True(t, ok)
	}
	ok, _ := rl.Allow("u")
	assert.False(t, ok)

	ok, _ = rl.Allow("other")
	assert.True(t, ok, "callers have separate buckets")

	clock.t = clock.t.Add(90 * time.Second)
	ok, remaining := rl.Allow("u")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	clock.t = clock.t.Add(time.Hour)
	_, remaining = rl.Allow("u")
	assert.Equal(t, 2, remaining)
}

func TestRateLimiter_SweepDropsIdleCallers(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter("api", 2, 1, time.Minute)
	rl.now = clock.now

	rl.Allow("idle")
	rl.Allow("busy")
	rl.Allow("busy")

	clock.t = clock.t.Add(time.Minute)
	rl.Sweep()

	assert.NotContains(t, rl.buckets, "idle")
	assert.Contains(t, rl.buckets, "busy")
}

func TestRateLimiterPresets(t *testing.T) {
	assert.Equal(t, 100, APIRateLimiter(100).maxTokens)
	assert.Equal(t, 10, APIRateLimiter(100).refillRate)
	assert.Equal(t, 2, ModelRateLimiter(20).refillRate)
	assert.Equal(t, 1, ModelRateLimiter(5).refillRate)
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(2, 1, 10*time.Millisecond)
	var transitions []string
	cb.OnStateChange = func(from, to CircuitState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}

	cb.Record(errors.New("boom"))
	assert.True(t, cb.Allow())
	cb.Record(errors.New("boom"))
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Allow())
	cb.Record(nil)

	assert.Equal(t, CircuitClosed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreakerMiddleware_RejectsWhenOpen(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(1, 1, time.Minute)
	cb.RecordFailure()
	router := gin.New()
	router.POST("/optimize", CircuitBreakerMiddleware(cb), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/optimize", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, ErrCodeCircuitOpen, apiErr.Code)
	assert.Equal(t, 60000, apiErr.RetryAfter)
}

func TestStageFailed(t *testing.T) {
	router := gin.New()
	router.GET("/", func(c *gin.Context) { StageFailed(c, "stage2", "backend b failed") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, ErrCodeAIStageFailed, apiErr.Code)
	assert.Equal(t, "optimization failed at stage2", apiErr.Message)
	assert.Equal(t, "backend b failed", apiErr.Details)
}

func TestRequestLogger_LogsRouteAndUser(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	user := uuid.New()
	router := gin.New()
	router.Use(RequestID(), RequestLogger(zap.New(core)))
	router.GET("/sessions/:sessionId", func(c *gin.Context) {
		SetUserID(c, user)
		c.String(http.StatusOK, "ok")
	})
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/sessions/abc", "/health", "/broken", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 4)

	fields := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/sessions/:sessionId", fields["route"])
	assert.Equal(t, "/sessions/abc", fields["path"])
	assert.Equal(t, user.String(), fields["user_id"])
	assert.EqualValues(t, 2, fields["response_bytes"])
	assert.NotEmpty(t, fields["request_id"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "request failed", entries[2].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[3].Level)
	assert.Equal(t, "unmatched", entries[3].ContextMap()["route"])
}

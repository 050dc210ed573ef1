package httptransport_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"botdash-server-go/internal/domain/auth"
	"botdash-server-go/internal/platform/cache"
	apierrors "botdash-server-go/internal/platform/errors"
	"botdash-server-go/internal/platform/logging"
	httptransport "botdash-server-go/internal/transport/http"
)

func testPipeline(t *testing.T, exposeCause bool) (*httptransport.Pipeline, *auth.SessionTokens) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, err := logging.New(logging.Config{Level: "error"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store := cache.NewMemory(cache.Config{})
	t.Cleanup(func() { store.Close(context.Background()) })

	tokens := auth.NewSessionTokens("test-secret")
	return httptransport.NewPipeline(httptransport.PipelineOptions{
		Store:       store,
		Tokens:      tokens,
		Logger:      logger,
		Version:     "1.0",
		ExposeCause: exposeCause,
	}), tokens
}

func decodeError(t *testing.T, body []byte) apierrors.Response {
	t.Helper()
	var resp apierrors.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, body)
	}
	return resp
}

func TestPipeline_VersionHeader(t *testing.T) {
	pipeline, _ := testPipeline(t, false)
	engine := gin.New()
	engine.GET("/api/ping", pipeline.Wrap(httptransport.RouteOptions{}, func(c *gin.Context) (int, any, error) {
		return http.StatusOK, gin.H{"pong": true}, nil
	}))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

	if got := w.Header().Get("x-api-version"); got != "1.0" {
		t.Fatalf("x-api-version = %q, expected configured default", got)
	}

	// A request-supplied version is echoed back instead.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("x-api-version", "2.1")
	engine.ServeHTTP(w, req)

	if got := w.Header().Get("x-api-version"); got != "2.1" {
		t.Fatalf("x-api-version = %q, expected request-supplied value", got)
	}
}

// 61 calls against a route limited at 60 per minute: the 61st gets a
// 429 with the documented code, version header still attached.
func TestPipeline_RateLimit(t *testing.T) {
	pipeline, _ := testPipeline(t, false)
	engine := gin.New()
	engine.GET("/api/limited", pipeline.Wrap(httptransport.RouteOptions{
		RateLimit:  60,
		RateWindow: time.Minute,
	}, func(c *gin.Context) (int, any, error) {
		return http.StatusOK, gin.H{}, nil
	}))

	var last *httptest.ResponseRecorder
	for i := 0; i < 61; i++ {
		last = httptest.NewRecorder()
		engine.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/api/limited", nil))
		if i < 60 && last.Code != http.StatusOK {
			t.Fatalf("call %d = %d, expected 200", i+1, last.Code)
		}
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("61st call = %d, expected 429", last.Code)
	}
	resp := decodeError(t, last.Body.Bytes())
	if resp.Error.Code != apierrors.CodeTooManyRequests {
		t.Fatalf("code = %s, expected TOO_MANY_REQUESTS", resp.Error.Code)
	}
	if last.Header().Get("x-api-version") == "" {
		t.Fatal("429 missing version header")
	}
}

func TestPipeline_RateLimitPerRoute(t *testing.T) {
	pipeline, _ := testPipeline(t, false)
	engine := gin.New()
	handler := func(c *gin.Context) (int, any, error) { return http.StatusOK, gin.H{}, nil }
	engine.GET("/api/a", pipeline.Wrap(httptransport.RouteOptions{RateLimit: 1}, handler))
	engine.GET("/api/b", pipeline.Wrap(httptransport.RouteOptions{RateLimit: 1}, handler))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/a", nil))
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/a", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second call on /api/a = %d, expected 429", w.Code)
	}

	// The same client is not limited on another route.
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/b", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/api/b = %d, expected 200", w.Code)
	}
}

func TestPipeline_AuthGate(t *testing.T) {
	pipeline, tokens := testPipeline(t, false)
	engine := gin.New()
	engine.GET("/api/secure", pipeline.Wrap(httptransport.RouteOptions{RequireAuth: true}, func(c *gin.Context) (int, any, error) {
		session, _ := httptransport.SessionFrom(c)
		return http.StatusOK, gin.H{"subject": session.SubjectID}, nil
	}))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/secure", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated = %d, expected 401", w.Code)
	}
	resp := decodeError(t, w.Body.Bytes())
	if resp.Error.Code != apierrors.CodeUnauthorized {
		t.Fatalf("code = %s, expected UNAUTHORIZED", resp.Error.Code)
	}

	signed, err := tokens.Generate(auth.Session{SubjectID: "u1", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/secure", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("authenticated = %d, expected 200", w.Code)
	}
	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["subject"] != "u1" {
		t.Fatalf("handler saw session %+v", body)
	}
}

func TestPipeline_ResponseCache(t *testing.T) {
	pipeline, _ := testPipeline(t, false)
	calls := 0
	engine := gin.New()
	engine.GET("/api/cached", pipeline.Wrap(httptransport.RouteOptions{CacheTTL: time.Minute}, func(c *gin.Context) (int, any, error) {
		calls++
		return http.StatusOK, gin.H{"calls": calls}, nil
	}))

	first := httptest.NewRecorder()
	engine.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/cached?q=1", nil))
	second := httptest.NewRecorder()
	engine.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/cached?q=1", nil))

	if calls != 1 {
		t.Fatalf("handler ran %d times, expected the hit to short-circuit", calls)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("cached body %q differs from original %q", second.Body.String(), first.Body.String())
	}

	// A different querystring is a different cache key.
	third := httptest.NewRecorder()
	engine.ServeHTTP(third, httptest.NewRequest(http.MethodGet, "/api/cached?q=2", nil))
	if calls != 2 {
		t.Fatalf("handler ran %d times, expected a miss for new query", calls)
	}
}

func TestPipeline_CacheSkipsNon2xx(t *testing.T) {
	pipeline, _ := testPipeline(t, false)
	calls := 0
	engine := gin.New()
	engine.GET("/api/flaky", pipeline.Wrap(httptransport.RouteOptions{CacheTTL: time.Minute}, func(c *gin.Context) (int, any, error) {
		calls++
		if calls == 1 {
			return 0, nil, apierrors.NotFound("flaky.get", "nothing here")
		}
		return http.StatusOK, gin.H{}, nil
	}))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/flaky", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("first call = %d, expected 404", w.Code)
	}

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/flaky", nil))
	if w.Code != http.StatusOK || calls != 2 {
		t.Fatalf("error response was cached (code %d, calls %d)", w.Code, calls)
	}
}

func TestPipeline_NoCacheForPut(t *testing.T) {
	pipeline, _ := testPipeline(t, false)
	calls := 0
	engine := gin.New()
	engine.PUT("/api/write", pipeline.Wrap(httptransport.RouteOptions{CacheTTL: time.Minute}, func(c *gin.Context) (int, any, error) {
		calls++
		return http.StatusOK, gin.H{}, nil
	}))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/write", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("call = %d", w.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("PUT was served from cache (calls = %d)", calls)
	}
}

func TestPipeline_ErrorTranslation(t *testing.T) {
	pipeline, _ := testPipeline(t, false)
	engine := gin.New()
	engine.GET("/api/boom", pipeline.Wrap(httptransport.RouteOptions{}, func(c *gin.Context) (int, any, error) {
		return 0, nil, errors.New("database exploded")
	}))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, expected 500", w.Code)
	}
	resp := decodeError(t, w.Body.Bytes())
	if resp.Error.Code != apierrors.CodeInternal {
		t.Fatalf("code = %s, expected INTERNAL_SERVER_ERROR", resp.Error.Code)
	}
	if resp.Error.Message != "internal server error" {
		t.Fatalf("production mode leaked %q", resp.Error.Message)
	}
	if w.Header().Get("x-api-version") == "" {
		t.Fatal("error response missing version header")
	}
}

func TestPipeline_ErrorDetailInDevelopment(t *testing.T) {
	pipeline, _ := testPipeline(t, true)
	engine := gin.New()
	engine.GET("/api/boom", pipeline.Wrap(httptransport.RouteOptions{}, func(c *gin.Context) (int, any, error) {
		return 0, nil, errors.New("database exploded")
	}))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/boom", nil))

	resp := decodeError(t, w.Body.Bytes())
	if resp.Error.Message != "database exploded" {
		t.Fatalf("development mode hid the cause: %q", resp.Error.Message)
	}
}

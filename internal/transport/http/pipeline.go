package httptransport

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"botdash-server-go/internal/domain/auth"
	"botdash-server-go/internal/platform/cache"
	apierrors "botdash-server-go/internal/platform/errors"
	"botdash-server-go/internal/platform/logging"
	"botdash-server-go/internal/platform/observability"
	"botdash-server-go/internal/platform/ratelimit"
)

// VersionHeader is stamped on every wrapped response, errors included.
const VersionHeader = "x-api-version"

const sessionContextKey = "botdash.session"

// HandlerFunc is the business-logic signature wrapped by the pipeline:
// a status plus JSON body on success, or an error translated through
// the taxonomy.
type HandlerFunc func(c *gin.Context) (int, any, error)

// RouteOptions configures the gates applied to one route.
type RouteOptions struct {
	// RequireAuth resolves the caller's session before the handler
	// runs; requests without a valid session are rejected.
	RequireAuth bool
	// RateLimit is the per-client-per-route request budget per window.
	// Zero disables the gate.
	RateLimit int
	// RateWindow defaults to the limiter's standard window.
	RateWindow time.Duration
	// CacheTTL enables response caching of GET requests for the given
	// lifetime. Zero disables it.
	CacheTTL time.Duration
}

// Pipeline is the request-handling shared by every API route: rate
// limiting, authentication, response caching, version stamping and
// error translation, in that order, terminal on first failure.
type Pipeline struct {
	store       cache.Store
	limiter     *ratelimit.Limiter
	tokens      *auth.SessionTokens
	logger      *logging.Logger
	version     string
	exposeCause bool
}

// PipelineOptions configures the shared pipeline.
type PipelineOptions struct {
	Store       cache.Store
	Tokens      *auth.SessionTokens
	Logger      *logging.Logger
	Version     string
	ExposeCause bool
}

func NewPipeline(opts PipelineOptions) *Pipeline {
	return &Pipeline{
		store:       opts.Store,
		limiter:     ratelimit.New(opts.Store),
		tokens:      opts.Tokens,
		logger:      opts.Logger,
		version:     opts.Version,
		exposeCause: opts.ExposeCause,
	}
}

// cachedResponse is the stored shape of a cache hit, replayed verbatim.
type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Wrap builds the gin handler running the full pipeline around handler.
func (p *Pipeline) Wrap(opts RouteOptions, handler HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		// The version header is attached up front so every outcome
		// carries it, 429s and errors included.
		version := c.GetHeader(VersionHeader)
		if version == "" {
			version = p.version
		}
		c.Header(VersionHeader, version)

		if opts.RateLimit > 0 {
			identifier := c.ClientIP() + ":" + c.Request.URL.Path
			if p.limiter.Check(c.Request.Context(), identifier, opts.RateLimit, opts.RateWindow) {
				observability.Count(c.Request.Context(), "api.rate_limited", map[string]string{"path": c.Request.URL.Path})
				RespondError(c, apierrors.TooManyRequests("pipeline.rate_limit", "too many requests"), p.exposeCause)
				return
			}
		}

		if opts.RequireAuth {
			session, err := p.resolveSession(c)
			if err != nil {
				RespondError(c, err, p.exposeCause)
				return
			}
			c.Set(sessionContextKey, session)
		}

		cacheable := opts.CacheTTL > 0 && c.Request.Method == http.MethodGet
		var cacheKey string
		if cacheable {
			cacheKey = "api:" + c.Request.URL.Path + ":" + c.Request.URL.RawQuery
			if raw, ok, err := p.store.Get(c.Request.Context(), cacheKey); err == nil && ok {
				var cached cachedResponse
				if err := json.Unmarshal(raw, &cached); err == nil {
					observability.Count(c.Request.Context(), "api.cache_hit", map[string]string{"path": c.Request.URL.Path})
					c.Data(cached.Status, "application/json; charset=utf-8", cached.Body)
					return
				}
			}
		}

		status, body, err := handler(c)
		if err != nil {
			typed := apierrors.From(err)
			p.logger.Warn("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, typed)
			RespondError(c, typed, p.exposeCause)
			return
		}

		if cacheable && status >= 200 && status < 300 {
			if encoded, err := json.Marshal(body); err == nil {
				entry, _ := json.Marshal(cachedResponse{Status: status, Body: encoded})
				// Best effort: a failed store costs a cache miss later.
				_ = p.store.Set(c.Request.Context(), cacheKey, entry, opts.CacheTTL)
			}
		}

		c.JSON(status, body)
	}
}

func (p *Pipeline) resolveSession(c *gin.Context) (auth.Session, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return auth.Session{}, apierrors.Unauthorized("pipeline.auth", "authentication required")
	}
	token := header
	if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
		token = token[7:]
	}

	session, err := p.tokens.Verify(token)
	if err != nil {
		return auth.Session{}, apierrors.Unauthorized("pipeline.auth", "invalid session token")
	}
	return session, nil
}

// SessionFrom returns the session resolved by the auth gate.
func SessionFrom(c *gin.Context) (auth.Session, bool) {
	value, ok := c.Get(sessionContextKey)
	if !ok {
		return auth.Session{}, false
	}
	session, ok := value.(auth.Session)
	return session, ok
}

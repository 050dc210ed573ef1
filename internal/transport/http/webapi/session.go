package webapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"botdash-server-go/internal/domain/auth"
	"botdash-server-go/internal/domain/identity/repository"
	"botdash-server-go/internal/platform/config"
	apierrors "botdash-server-go/internal/platform/errors"
	"botdash-server-go/internal/platform/logging"
	httptransport "botdash-server-go/internal/transport/http"
)

// SessionService exposes the token endpoints: credential login against
// identity records, stateless logout, and a dev token mint so a local
// dashboard can authenticate without seeded accounts; the mint is not
// registered in production mode.
type SessionService struct {
	tokens     *auth.SessionTokens
	identities repository.IdentityRepository
	pipeline   *httptransport.Pipeline
	config     *config.Config
	logger     *logging.Logger
}

func NewSessionService(
	tokens *auth.SessionTokens,
	identities repository.IdentityRepository,
	pipeline *httptransport.Pipeline,
	cfg *config.Config,
	logger *logging.Logger,
) *SessionService {
	return &SessionService{
		tokens:     tokens,
		identities: identities,
		pipeline:   pipeline,
		config:     cfg,
		logger:     logger,
	}
}

// Start registers the session routes.
func (s *SessionService) Start(ctx context.Context, apiGroup *gin.RouterGroup) error {
	opts := httptransport.RouteOptions{
		RateLimit:  s.config.API.RateLimit,
		RateWindow: s.config.API.RateWindow,
	}
	apiGroup.POST("/auth/login", s.pipeline.Wrap(opts, s.handleLogin))
	apiGroup.POST("/auth/logout", s.pipeline.Wrap(opts, s.handleLogout))

	if !s.config.Runtime.Production() {
		apiGroup.POST("/auth/dev-token", s.pipeline.Wrap(opts, s.handleDevToken))
		s.logger.Warn("[HTTP] dev token endpoint enabled")
	}

	s.logger.Info("[HTTP] session routes registered")
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *SessionService) handleLogin(c *gin.Context) (int, any, error) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return 0, nil, apierrors.BadRequest("session.login", "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return 0, nil, apierrors.BadRequest("session.login", "email and password required")
	}

	record, err := s.identities.FindByEmailFold(c.Request.Context(), req.Email)
	if err != nil {
		return 0, nil, err
	}
	// One answer for unknown email and wrong password; accounts cannot
	// be enumerated through this endpoint.
	if record == nil || !auth.CheckPassword(record.PasswordHash, req.Password) {
		return 0, nil, apierrors.Unauthorized("session.login", "invalid credentials")
	}

	signed, err := s.tokens.Generate(auth.Session{
		SubjectID: record.ID,
		Email:     record.Email,
		Name:      record.Name,
	})
	if err != nil {
		return 0, nil, apierrors.Wrap("session.login", "failed to issue token", err)
	}

	return http.StatusOK, gin.H{"token": signed, "userId": record.ID}, nil
}

func (s *SessionService) handleLogout(c *gin.Context) (int, any, error) {
	// Tokens are stateless; logout is an acknowledgement for the UI.
	return http.StatusOK, gin.H{"message": "logged out"}, nil
}

type devTokenRequest struct {
	SubjectID string `json:"subjectId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

func (s *SessionService) handleDevToken(c *gin.Context) (int, any, error) {
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return 0, nil, apierrors.BadRequest("session.dev_token", "invalid request body")
	}
	if req.SubjectID == "" {
		return 0, nil, apierrors.BadRequest("session.dev_token", "subjectId required")
	}

	signed, err := s.tokens.Generate(auth.Session{
		SubjectID: req.SubjectID,
		Email:     req.Email,
		Name:      req.Name,
	})
	if err != nil {
		return 0, nil, apierrors.Wrap("session.dev_token", "failed to issue token", err)
	}

	return http.StatusOK, gin.H{"token": signed}, nil
}

package webapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	identityservice "botdash-server-go/internal/domain/identity/service"
	"botdash-server-go/internal/platform/config"
	apierrors "botdash-server-go/internal/platform/errors"
	"botdash-server-go/internal/platform/logging"
	httptransport "botdash-server-go/internal/transport/http"
)

// SettingsService serves the per-account settings endpoints. Both are
// backed by the account reconciler, so a failed primary-key lookup still
// resolves to a usable record.
type SettingsService struct {
	reconciler *identityservice.Reconciler
	pipeline   *httptransport.Pipeline
	config     *config.Config
	logger     *logging.Logger
}

func NewSettingsService(
	reconciler *identityservice.Reconciler,
	pipeline *httptransport.Pipeline,
	cfg *config.Config,
	logger *logging.Logger,
) *SettingsService {
	return &SettingsService{
		reconciler: reconciler,
		pipeline:   pipeline,
		config:     cfg,
		logger:     logger,
	}
}

// Start registers the settings routes.
func (s *SettingsService) Start(ctx context.Context, apiGroup *gin.RouterGroup) error {
	opts := httptransport.RouteOptions{
		RequireAuth: true,
		RateLimit:   s.config.API.RateLimit,
		RateWindow:  s.config.API.RateWindow,
	}
	apiGroup.GET("/user/settings", s.pipeline.Wrap(opts, s.handleGetSettings))
	apiGroup.PUT("/user/settings", s.pipeline.Wrap(opts, s.handleUpdateSettings))

	s.logger.Info("[HTTP] settings routes registered")
	return nil
}

func (s *SettingsService) handleGetSettings(c *gin.Context) (int, any, error) {
	session, ok := httptransport.SessionFrom(c)
	if !ok {
		return 0, nil, apierrors.Unauthorized("settings.get", "session required")
	}

	res, err := s.reconciler.GetSettings(c.Request.Context(), session.SubjectID, session.Email, session.Name)
	if err != nil {
		return 0, nil, err
	}

	if res.Outcome == identityservice.OutcomeDegraded {
		return http.StatusOK, gin.H{
			"userId":   res.UserID(),
			"settings": res.Settings,
			"_warning": res.Warning,
		}, nil
	}

	return http.StatusOK, gin.H{
		"userId":   res.UserID(),
		"settings": res.Record.Settings,
	}, nil
}

// UpdateSettingsRequest is the PUT body.
type UpdateSettingsRequest struct {
	Settings map[string]any `json:"settings"`
}

func (s *SettingsService) handleUpdateSettings(c *gin.Context) (int, any, error) {
	session, ok := httptransport.SessionFrom(c)
	if !ok {
		return 0, nil, apierrors.Unauthorized("settings.update", "session required")
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return 0, nil, apierrors.BadRequest("settings.update", "invalid request body")
	}
	if req.Settings == nil {
		return 0, nil, apierrors.BadRequest("settings.update", "settings payload required")
	}

	res, err := s.reconciler.UpdateSettings(c.Request.Context(), session.SubjectID, session.Email, session.Name, req.Settings)
	if err != nil {
		return 0, nil, err
	}

	if res.Outcome == identityservice.OutcomeDegraded {
		return http.StatusOK, gin.H{
			"userId":   res.UserID(),
			"settings": res.Settings,
			"message":  "settings accepted",
			"_warning": res.Warning,
		}, nil
	}

	return http.StatusOK, gin.H{
		"message": "settings updated",
		"userId":  res.UserID(),
	}, nil
}

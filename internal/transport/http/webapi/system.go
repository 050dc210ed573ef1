package webapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	botrepo "botdash-server-go/internal/domain/bot/repository"
	"botdash-server-go/internal/platform/config"
	"botdash-server-go/internal/platform/logging"
	httptransport "botdash-server-go/internal/transport/http"
)

// SystemService serves the dashboard's summary widget: record counts
// plus host memory and CPU usage. The response is identical for every
// caller, so it is served through the response cache.
type SystemService struct {
	bots     botrepo.BotRepository
	pipeline *httptransport.Pipeline
	config   *config.Config
	logger   *logging.Logger
}

func NewSystemService(
	bots botrepo.BotRepository,
	pipeline *httptransport.Pipeline,
	cfg *config.Config,
	logger *logging.Logger,
) *SystemService {
	return &SystemService{
		bots:     bots,
		pipeline: pipeline,
		config:   cfg,
		logger:   logger,
	}
}

// Start registers the system routes.
func (s *SystemService) Start(ctx context.Context, apiGroup *gin.RouterGroup) error {
	apiGroup.GET("/system/summary", s.pipeline.Wrap(httptransport.RouteOptions{
		RequireAuth: true,
		RateLimit:   s.config.API.RateLimit,
		RateWindow:  s.config.API.RateWindow,
		CacheTTL:    s.config.API.CacheTTL,
	}, s.handleSummary))

	s.logger.Info("[HTTP] system routes registered")
	return nil
}

func (s *SystemService) handleSummary(c *gin.Context) (int, any, error) {
	botCount, err := s.bots.CountAll(c.Request.Context())
	if err != nil {
		return 0, nil, err
	}

	summary := gin.H{
		"total_bots": botCount,
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		summary["memory_used_percent"] = vm.UsedPercent
	}
	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		summary["cpu_used_percent"] = percents[0]
	}

	return http.StatusOK, summary, nil
}

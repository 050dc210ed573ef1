package webapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"botdash-server-go/internal/domain/bot/aggregate"
	"botdash-server-go/internal/domain/bot/repository"
	"botdash-server-go/internal/platform/config"
	apierrors "botdash-server-go/internal/platform/errors"
	"botdash-server-go/internal/platform/logging"
	httptransport "botdash-server-go/internal/transport/http"
)

// BotService serves the bot CRUD endpoints. These are thin persistence
// wrappers; conversation handling lives outside the dashboard.
type BotService struct {
	repo     repository.BotRepository
	pipeline *httptransport.Pipeline
	config   *config.Config
	logger   *logging.Logger
}

func NewBotService(
	repo repository.BotRepository,
	pipeline *httptransport.Pipeline,
	cfg *config.Config,
	logger *logging.Logger,
) *BotService {
	return &BotService{
		repo:     repo,
		pipeline: pipeline,
		config:   cfg,
		logger:   logger,
	}
}

// Start registers the bot routes.
func (s *BotService) Start(ctx context.Context, apiGroup *gin.RouterGroup) error {
	opts := httptransport.RouteOptions{
		RequireAuth: true,
		RateLimit:   s.config.API.RateLimit,
		RateWindow:  s.config.API.RateWindow,
	}
	apiGroup.POST("/bots", s.pipeline.Wrap(opts, s.handleCreate))
	apiGroup.GET("/bots", s.pipeline.Wrap(opts, s.handleList))
	apiGroup.GET("/bots/:id", s.pipeline.Wrap(opts, s.handleGet))
	apiGroup.PUT("/bots/:id", s.pipeline.Wrap(opts, s.handleUpdate))
	apiGroup.DELETE("/bots/:id", s.pipeline.Wrap(opts, s.handleDelete))

	s.logger.Info("[HTTP] bot routes registered")
	return nil
}

type botPayload struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Config      map[string]any `json:"config"`
}

func botResponse(bot *aggregate.Bot) gin.H {
	return gin.H{
		"id":          bot.ID,
		"name":        bot.Name,
		"description": bot.Description,
		"status":      bot.Status,
		"config":      bot.Config,
		"createdAt":   bot.CreatedAt,
		"updatedAt":   bot.UpdatedAt,
	}
}

func (s *BotService) handleCreate(c *gin.Context) (int, any, error) {
	session, _ := httptransport.SessionFrom(c)

	var req botPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		return 0, nil, apierrors.BadRequest("bot.create", "invalid request body")
	}
	if req.Name == "" {
		return 0, nil, apierrors.BadRequest("bot.create", "bot name required")
	}

	bot := aggregate.NewBot(session.SubjectID, req.Name, req.Description, req.Config)
	if err := s.repo.Save(c.Request.Context(), bot); err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, botResponse(bot), nil
}

func (s *BotService) handleList(c *gin.Context) (int, any, error) {
	session, _ := httptransport.SessionFrom(c)

	bots, err := s.repo.ListByOwnerID(c.Request.Context(), session.SubjectID)
	if err != nil {
		return 0, nil, err
	}

	items := make([]gin.H, len(bots))
	for i, bot := range bots {
		items[i] = botResponse(bot)
	}
	return http.StatusOK, gin.H{"bots": items}, nil
}

// ownedBot loads the bot and enforces ownership. Foreign bots read as
// absent rather than forbidden, so ids cannot be probed.
func (s *BotService) ownedBot(c *gin.Context, op string) (*aggregate.Bot, error) {
	session, _ := httptransport.SessionFrom(c)

	bot, err := s.repo.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if bot == nil || bot.OwnerID != session.SubjectID {
		return nil, apierrors.NotFound(op, "bot not found")
	}
	return bot, nil
}

func (s *BotService) handleGet(c *gin.Context) (int, any, error) {
	bot, err := s.ownedBot(c, "bot.get")
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, botResponse(bot), nil
}

func (s *BotService) handleUpdate(c *gin.Context) (int, any, error) {
	bot, err := s.ownedBot(c, "bot.update")
	if err != nil {
		return 0, nil, err
	}

	var req botPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		return 0, nil, apierrors.BadRequest("bot.update", "invalid request body")
	}

	if req.Name != "" {
		bot.Name = req.Name
	}
	if req.Description != "" {
		bot.Description = req.Description
	}
	if req.Status != "" {
		bot.Status = req.Status
	}
	if req.Config != nil {
		bot.Config = req.Config
	}
	if err := s.repo.Update(c.Request.Context(), bot); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, botResponse(bot), nil
}

func (s *BotService) handleDelete(c *gin.Context) (int, any, error) {
	bot, err := s.ownedBot(c, "bot.delete")
	if err != nil {
		return 0, nil, err
	}
	if err := s.repo.Delete(c.Request.Context(), bot.ID); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, gin.H{"message": "bot deleted", "id": bot.ID}, nil
}

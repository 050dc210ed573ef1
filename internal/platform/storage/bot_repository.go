package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"botdash-server-go/internal/domain/bot/aggregate"
	"botdash-server-go/internal/domain/bot/repository"
	apierrors "botdash-server-go/internal/platform/errors"
)

type botRepository struct {
	db *gorm.DB
}

// NewBotRepository creates the gorm-backed bot store.
func NewBotRepository(db *gorm.DB) repository.BotRepository {
	return &botRepository{db: db}
}

func (r *botRepository) FindByID(ctx context.Context, id string) (*aggregate.Bot, error) {
	var model BotRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apierrors.Wrap("bot.find_by_id", "failed to find bot", err)
	}
	return fromBotModel(&model), nil
}

func (r *botRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*aggregate.Bot, error) {
	var models []BotRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, apierrors.Wrap("bot.list_by_owner", "failed to list bots", err)
	}

	bots := make([]*aggregate.Bot, len(models))
	for i := range models {
		bots[i] = fromBotModel(&models[i])
	}
	return bots, nil
}

func (r *botRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&BotRecord{}).Count(&count).Error; err != nil {
		return 0, apierrors.Wrap("bot.count", "failed to count bots", err)
	}
	return count, nil
}

func (r *botRepository) Save(ctx context.Context, bot *aggregate.Bot) error {
	model, err := toBotModel(bot)
	if err != nil {
		return apierrors.Wrap("bot.save", "failed to encode bot", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return apierrors.Wrap("bot.save", "failed to save bot", err)
	}
	return nil
}

func (r *botRepository) Update(ctx context.Context, bot *aggregate.Bot) error {
	bot.UpdatedAt = time.Now()
	model, err := toBotModel(bot)
	if err != nil {
		return apierrors.Wrap("bot.update", "failed to encode bot", err)
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return apierrors.Wrap("bot.update", "failed to update bot", err)
	}
	return nil
}

func (r *botRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&BotRecord{}).Error; err != nil {
		return apierrors.Wrap("bot.delete", "failed to delete bot", err)
	}
	return nil
}

func toBotModel(bot *aggregate.Bot) (*BotRecord, error) {
	var config []byte
	if bot.Config != nil {
		encoded, err := json.Marshal(bot.Config)
		if err != nil {
			return nil, err
		}
		config = encoded
	}
	return &BotRecord{
		ID:          bot.ID,
		OwnerID:     bot.OwnerID,
		Name:        bot.Name,
		Description: bot.Description,
		Status:      bot.Status,
		Config:      config,
		CreatedAt:   bot.CreatedAt,
		UpdatedAt:   bot.UpdatedAt,
	}, nil
}

func fromBotModel(model *BotRecord) *aggregate.Bot {
	bot := &aggregate.Bot{
		ID:          model.ID,
		OwnerID:     model.OwnerID,
		Name:        model.Name,
		Description: model.Description,
		Status:      model.Status,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
	if len(model.Config) > 0 {
		var config map[string]any
		if err := json.Unmarshal(model.Config, &config); err == nil {
			bot.Config = config
		}
	}
	return bot
}

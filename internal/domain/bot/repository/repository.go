package repository

import (
	"context"

	"botdash-server-go/internal/domain/bot/aggregate"
)

// BotRepository persists bot definitions. Lookups return (nil, nil)
// when no record matches.
type BotRepository interface {
	FindByID(ctx context.Context, id string) (*aggregate.Bot, error)
	ListByOwnerID(ctx context.Context, ownerID string) ([]*aggregate.Bot, error)
	CountAll(ctx context.Context) (int64, error)
	Save(ctx context.Context, bot *aggregate.Bot) error
	Update(ctx context.Context, bot *aggregate.Bot) error
	Delete(ctx context.Context, id string) error
}

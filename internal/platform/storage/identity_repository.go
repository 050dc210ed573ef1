package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"botdash-server-go/internal/domain/identity/aggregate"
	"botdash-server-go/internal/domain/identity/repository"
	apierrors "botdash-server-go/internal/platform/errors"
)

type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository creates the gorm-backed identity store.
func NewIdentityRepository(db *gorm.DB) repository.IdentityRepository {
	return &identityRepository{db: db}
}

func (r *identityRepository) FindByID(ctx context.Context, id string) (*aggregate.Identity, error) {
	var model IdentityRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apierrors.Wrap("identity.find_by_id", "failed to find identity", err)
	}
	return r.fromModel(&model), nil
}

func (r *identityRepository) FindByEmailFold(ctx context.Context, email string) (*aggregate.Identity, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	var model IdentityRecord
	err := r.db.WithContext(ctx).
		Where("LOWER(TRIM(email)) = ?", normalized).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apierrors.Wrap("identity.find_by_email_fold", "failed to find identity", err)
	}
	return r.fromModel(&model), nil
}

func (r *identityRepository) FindByEmail(ctx context.Context, email string) (*aggregate.Identity, error) {
	var model IdentityRecord
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apierrors.Wrap("identity.find_by_email", "failed to find identity", err)
	}
	return r.fromModel(&model), nil
}

func (r *identityRepository) FindAll(ctx context.Context) ([]*aggregate.Identity, error) {
	var models []IdentityRecord
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, apierrors.Wrap("identity.find_all", "failed to list identities", err)
	}

	identities := make([]*aggregate.Identity, len(models))
	for i := range models {
		identities[i] = r.fromModel(&models[i])
	}
	return identities, nil
}

func (r *identityRepository) Create(ctx context.Context, identity *aggregate.Identity) error {
	model, err := r.toModel(identity)
	if err != nil {
		return apierrors.Wrap("identity.create", "failed to encode identity", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return repository.ErrDuplicateEmail
		}
		return apierrors.Wrap("identity.create", "failed to create identity", err)
	}
	return nil
}

func (r *identityRepository) Update(ctx context.Context, identity *aggregate.Identity) error {
	model, err := r.toModel(identity)
	if err != nil {
		return apierrors.Wrap("identity.update", "failed to encode identity", err)
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return apierrors.Wrap("identity.update", "failed to update identity", err)
	}
	return nil
}

func (r *identityRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&IdentityRecord{}).Error; err != nil {
		return apierrors.Wrap("identity.delete", "failed to delete identity", err)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// The sqlite driver does not translate every path.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *identityRepository) toModel(identity *aggregate.Identity) (*IdentityRecord, error) {
	var settings []byte
	if identity.Settings != nil {
		encoded, err := json.Marshal(identity.Settings)
		if err != nil {
			return nil, err
		}
		settings = encoded
	}
	return &IdentityRecord{
		ID:           identity.ID,
		Name:         identity.Name,
		Email:        identity.Email,
		PasswordHash: identity.PasswordHash,
		Settings:     settings,
		CreatedAt:    identity.CreatedAt,
	}, nil
}

func (r *identityRepository) fromModel(model *IdentityRecord) *aggregate.Identity {
	identity := &aggregate.Identity{
		ID:           model.ID,
		Name:         model.Name,
		Email:        model.Email,
		PasswordHash: model.PasswordHash,
		CreatedAt:    model.CreatedAt,
	}
	if len(model.Settings) > 0 {
		var settings map[string]any
		if err := json.Unmarshal(model.Settings, &settings); err == nil {
			identity.Settings = settings
		}
		// An undecodable blob reads as absent settings; the service
		// layer substitutes the defaults.
	}
	return identity
}

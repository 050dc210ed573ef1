package aggregate

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the durable account record keyed by a primary id and an
// email. Settings holds the dashboard preferences blob; the platform
// only ever reads and replaces it wholesale. PasswordHash is empty for
// accounts materialized by the reconciler; those cannot log in with
// credentials until one is set.
type Identity struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Settings     map[string]any
	CreatedAt    time.Time
}

// NewIdentity creates an identity with a fresh id. A nil settings map
// gets the defaults.
func NewIdentity(name, email string, settings map[string]any) *Identity {
	if settings == nil {
		settings = DefaultSettings()
	}
	return &Identity{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Settings:  settings,
		CreatedAt: time.Now(),
	}
}

// DefaultSettings returns the preferences applied to accounts that have
// never saved any.
func DefaultSettings() map[string]any {
	return map[string]any{
		"theme":         "light",
		"language":      "en",
		"notifications": true,
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"botdash-server-go/internal/domain/identity/aggregate"
	"botdash-server-go/internal/domain/identity/repository"

	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named in-memory database keeps gorm's pooled connections on the
	// same store while isolating tests from one another.
	db, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return db
}

func TestIdentityRepository_CreateAndFindByID(t *testing.T) {
	repo := NewIdentityRepository(testDB(t))
	ctx := context.Background()

	identity := aggregate.NewIdentity("Ana", "a@x.com", map[string]any{"theme": "dark"})
	if err := repo.Create(ctx, identity); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := repo.FindByID(ctx, identity.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found == nil {
		t.Fatal("FindByID returned nil for a stored record")
	}
	if found.Email != "a@x.com" || found.Settings["theme"] != "dark" {
		t.Fatalf("FindByID = %+v", found)
	}
}

func TestIdentityRepository_PasswordHashRoundTrips(t *testing.T) {
	repo := NewIdentityRepository(testDB(t))
	ctx := context.Background()

	identity := aggregate.NewIdentity("Ana", "a@x.com", nil)
	identity.PasswordHash = "$2a$10$fakehashfortest"
	if err := repo.Create(ctx, identity); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := repo.FindByID(ctx, identity.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.PasswordHash != identity.PasswordHash {
		t.Fatalf("PasswordHash = %q, expected %q", found.PasswordHash, identity.PasswordHash)
	}
}

func TestIdentityRepository_FindByIDAbsent(t *testing.T) {
	repo := NewIdentityRepository(testDB(t))

	found, err := repo.FindByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found != nil {
		t.Fatalf("FindByID = %+v for an absent id", found)
	}
}

func TestIdentityRepository_FindByEmailFold(t *testing.T) {
	repo := NewIdentityRepository(testDB(t))
	ctx := context.Background()

	stored := aggregate.NewIdentity("", "A@X.COM ", nil)
	if err := repo.Create(ctx, stored); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Case and surrounding whitespace drift must not matter.
	found, err := repo.FindByEmailFold(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("FindByEmailFold: %v", err)
	}
	if found == nil || found.ID != stored.ID {
		t.Fatalf("FindByEmailFold = %+v, expected record %s", found, stored.ID)
	}

	// The exact lookup does not fold.
	exact, err := repo.FindByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if exact != nil {
		t.Fatalf("FindByEmail folded: %+v", exact)
	}
	exact, err = repo.FindByEmail(ctx, "A@X.COM ")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if exact == nil {
		t.Fatal("FindByEmail missed the untrimmed original")
	}
}

func TestIdentityRepository_DuplicateEmail(t *testing.T) {
	repo := NewIdentityRepository(testDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, aggregate.NewIdentity("", "a@x.com", nil)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := repo.Create(ctx, aggregate.NewIdentity("", "a@x.com", nil))
	if !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("Create duplicate = %v, expected ErrDuplicateEmail", err)
	}
}

func TestIdentityRepository_UpdateSettings(t *testing.T) {
	repo := NewIdentityRepository(testDB(t))
	ctx := context.Background()

	identity := aggregate.NewIdentity("", "a@x.com", map[string]any{"theme": "light"})
	if err := repo.Create(ctx, identity); err != nil {
		t.Fatalf("Create: %v", err)
	}

	identity.Settings = map[string]any{"theme": "dark", "language": "de"}
	if err := repo.Update(ctx, identity); err != nil {
		t.Fatalf("Update: %v", err)
	}

	found, err := repo.FindByID(ctx, identity.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.Settings["theme"] != "dark" || found.Settings["language"] != "de" {
		t.Fatalf("settings after update = %+v", found.Settings)
	}
}

func TestIdentityRepository_FindAllAndDelete(t *testing.T) {
	repo := NewIdentityRepository(testDB(t))
	ctx := context.Background()

	first := aggregate.NewIdentity("", "a@x.com", nil)
	second := aggregate.NewIdentity("", "b@x.com", nil)
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	for _, identity := range []*aggregate.Identity{first, second} {
		if err := repo.Create(ctx, identity); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("FindAll = %d records, expected 2", len(all))
	}

	if err := repo.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, _ = repo.FindAll(ctx)
	if len(all) != 1 || all[0].ID != second.ID {
		t.Fatalf("after delete FindAll = %+v", all)
	}
}

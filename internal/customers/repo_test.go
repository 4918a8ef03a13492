package customers

import (
	"context"
	"testing"

	"github.com/beloribh/belori-backend/pkg/db/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCustomersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  phone TEXT,
  document TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func TestUpsertByEmailCreatesCustomer(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)

	created, err := repo.UpsertByEmail(context.Background(), &models.Customer{
		Name:  "Joana Lima",
		Email: "Joana@Example.com",
		Phone: "31998887766",
	})
	require.NoError(t, err)
	require.Equal(t, "joana@example.com", created.Email)
	require.Equal(t, "Joana Lima", created.Name)
}

func TestUpsertByEmailRefreshesExistingRow(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)

	first, err := repo.UpsertByEmail(context.Background(), &models.Customer{
		Name:  "Joana Lima",
		Email: "joana@example.com",
	})
	require.NoError(t, err)

	second, err := repo.UpsertByEmail(context.Background(), &models.Customer{
		Name:     "Joana L. Santos",
		Email:    "joana@example.com",
		Phone:    "31998887766",
		Document: "12345678901",
	})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Joana L. Santos", second.Name)
	require.Equal(t, "31998887766", second.Phone)
}

func TestUpsertByEmailRequiresEmail(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.UpsertByEmail(context.Background(), &models.Customer{Name: "Sem Email"})
	require.Error(t, err)
}

// Package testutil provides database fixtures for package tests
package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/database"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB returns a migrated in-memory SQLite database private to the
// test. The pool is limited to one connection, so code under test must not
// use the root handle while a transaction is open.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := database.Open(sqlite.Open(dsn), zap.NewNop(), "silent")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// CreateTestTenant inserts a tenant with the given username
func CreateTestTenant(t *testing.T, db *gorm.DB, username string) *domain.Tenant {
	t.Helper()
	tenant := &domain.Tenant{Username: username}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

// Owner returns the ownership key of tenant
func Owner(tenant *domain.Tenant) domain.Owner {
	return domain.Owner{TenantID: tenant.ID, Username: tenant.Username}
}

// CreateLegacyOffer inserts an offer written before tenants existed: it
// has an owner username but no tenant id
func CreateLegacyOffer(t *testing.T, db *gorm.DB, username string, year, seq int) *domain.Offer {
	t.Helper()
	offer := &domain.Offer{
		OwnerUsername: &username,
		ClientName:    "Legacy client",
		OfferYear:     year,
		OfferSeq:      seq,
		OfferNo:       domain.FormatNumber(year, seq),
		Status:        domain.OfferStatusDraft,
		VATRate:       25,
	}
	require.NoError(t, db.Omit("Items").Create(offer).Error)
	return offer
}

// FixedClock returns a clock frozen at t
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

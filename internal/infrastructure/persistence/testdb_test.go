package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ims/engine/internal/domain/catalog"
	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/warehouse"
)

// setupTestDB opens an in-memory SQLite database with the full schema. The
// domain models carry portable column types, so the same structs migrate on
// both postgres and sqlite.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&catalog.Product{},
		&catalog.Variant{},
		&warehouse.Warehouse{},
		&inventory.InventoryItem{},
		&inventory.StockMovement{},
		&inventory.Reservation{},
		&inventory.Alert{},
		&inventory.DashboardMetricsCacheEntry{},
		&shared.OutboxEntry{},
	)
	require.NoError(t, err)
	return db
}

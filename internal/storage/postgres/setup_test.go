package postgres

import (
	"testing"

	"github.com/fabriqd/fabriq/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens an in-memory sqlite database for repository tests.
// Lease acquisition relies on SKIP LOCKED and is covered by the postgres
// integration suite instead.
func SetupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Disable logs during tests
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Job{},
		&models.WebhookLogEntry{},
		&models.OutboxEvent{},
		&models.Brand{},
		&models.Product{},
		&models.Design{},
		&models.Asset{},
		&models.Render{},
		&models.RenderProgress{},
		&models.Order{},
		&models.QualityReport{},
	)
	require.NoError(t, err)

	return db
}

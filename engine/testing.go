package engine

import (
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/porchlight-social/guardrail/models"
	"github.com/porchlight-social/guardrail/rules"
)

// TestDatabase returns a fresh in-memory sqlite database with all
// moderation tables migrated. For use in tests only.
func TestDatabase() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}
	if err := db.AutoMigrate(
		&models.ContentClassification{},
		&models.ModerationAction{},
		&models.ComplianceLog{},
		&models.UserFilterProfile{},
		&models.UserFilterPreference{},
		&models.Appeal{},
	); err != nil {
		panic(err)
	}
	return db
}

// EngineTestFixture returns an Engine wired to an in-memory database
// and the built-in rule catalog.
func EngineTestFixture() *Engine {
	return NewEngine(TestDatabase(), rules.NewCatalog(), slog.Default())
}

package repo

import (
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a unique in-memory database per test to avoid schema
// leakage across tests. With migrate=true the full schema and counter row
// are created.
func newTestDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		// keep the shared in-memory db alive for the whole test
		sqlDB.SetMaxIdleConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	if migrate {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func fixedFormat(seq int) string { return fmt.Sprintf("%05dFTICLI112025", seq) }

package testutil

import (
	"os"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/storage/database"
)

// PrepareDB opens a freshly migrated test database, or skips the test unless ENV=TEST.
// Tables are emptied when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	if strings.ToUpper(os.Getenv("ENV")) != "TEST" {
		t.Skip("database tests need ENV=TEST and a reachable postgres")
	}

	conf, err := core.NewConfig()
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}

	t.Cleanup(func() {
		_, _ = db.Exec(`TRUNCATE expense, payment, student, school_year, membership_plan`)
		_ = db.Close()
	})
	return db
}

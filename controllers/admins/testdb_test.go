package admins

import (
	"testing"

	"github.com/un-caught/agri-invest/database"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// adminSchema covers the tables the admin handlers touch. AutoMigrate is
// not used here because the production column types are MySQL enums.
var adminSchema = []string{
	`CREATE TABLE investment_packages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT, category TEXT, description TEXT,
		min_amount NUMERIC, max_amount NUMERIC, return_rate NUMERIC,
		duration_days INTEGER, total_slots INTEGER, available_slots INTEGER,
		unit TEXT, status TEXT, created_at DATETIME, updated_at DATETIME)`,
	`CREATE TABLE investments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER, package_id INTEGER,
		amount NUMERIC, actual_return NUMERIC, status TEXT,
		start_date DATETIME, end_date DATETIME, completed_date DATETIME,
		withdrawal_request_id INTEGER,
		created_at DATETIME, updated_at DATETIME)`,
	`CREATE TABLE withdrawal_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER, amount NUMERIC, type TEXT, status TEXT,
		request_date DATETIME, processed_date DATETIME,
		admin_notes TEXT, payment_reference TEXT,
		created_at DATETIME, updated_at DATETIME)`,
	`CREATE TABLE transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER, investment_id INTEGER,
		type TEXT, amount NUMERIC, status TEXT, description TEXT,
		payment_method TEXT, payment_reference TEXT, created_at DATETIME)`,
}

// openAdminDB opens an isolated in-memory database, installs the schema
// and points the shared handle at it for the duration of the test.
func openAdminDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	// A single connection keeps the in-memory database alive.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	for _, stmt := range adminSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		_ = sqlDB.Close()
	})
	return db
}

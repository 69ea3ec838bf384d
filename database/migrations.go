package database

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"gorm.io/gorm"

	"github.com/un-caught/agri-invest/models"
)

// BackupDatabase attempts to create a SQL dump using mysqldump if it's available on PATH.
// It writes to the provided path and returns an error if the command fails.
func BackupDatabase(dsn string, outPath string) error {
	if _, err := exec.LookPath("mysqldump"); err != nil {
		return fmt.Errorf("mysqldump not found in PATH: %w", err)
	}

	// caller supplies the appropriate flags via DB_BACKUP_FLAGS
	args := []string{os.Getenv("DB_BACKUP_FLAGS")}
	cmd := exec.CommandContext(context.Background(), "mysqldump", args...)
	outFile, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer outFile.Close()
	cmd.Stdout = outFile
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mysqldump failed: %w", err)
	}
	return nil
}

// Migrate runs AutoMigrate for every table the service owns, after an
// optional best-effort mysqldump backup (DB_BACKUP_PATH).
func Migrate(db *gorm.DB) error {
	if err := RunMigrationsWithBackup(db,
		&models.User{},
		&models.RefreshToken{},
		&models.InvestmentPackage{},
		&models.Investment{},
		&models.Payment{},
		&models.Transaction{},
		&models.WithdrawalRequest{},
	); err != nil {
		return err
	}
	// revocation fallback store used when Redis is not configured
	return db.Exec("CREATE TABLE IF NOT EXISTS revoked_tokens (id VARCHAR(64) PRIMARY KEY, revoked_at DATETIME NOT NULL)").Error
}

// RunMigrationsWithBackup runs AutoMigrate after attempting a backup (best-effort).
func RunMigrationsWithBackup(db *gorm.DB, tables ...interface{}) error {
	backupPath := os.Getenv("DB_BACKUP_PATH")
	if backupPath != "" {
		go func() {
			_ = BackupDatabase(os.Getenv("DB_DSN"), backupPath)
		}()
		// allow a small window for the backup to start
		time.Sleep(500 * time.Millisecond)
	}

	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := tx.AutoMigrate(tables...); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

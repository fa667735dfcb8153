package db

import (
	"fmt"

	"github.com/adcopysurge/backend/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// autoMigrate creates or updates the tables shared by every dialect.
func autoMigrate(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.UserProfile{},
		&models.CreditAccount{},
		&models.CreditTransaction{},
		&models.AdAnalysis{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errMigrate := autoMigrate(conn); errMigrate != nil {
		return errMigrate
	}

	if errCheck := conn.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'chk_credit_accounts_current_credits'
			) THEN
				ALTER TABLE credit_accounts
				ADD CONSTRAINT chk_credit_accounts_current_credits CHECK (current_credits >= 0);
			END IF;
		END $$;
	`).Error; errCheck != nil {
		return fmt.Errorf("db: add credit balance check: %w", errCheck)
	}
	if errIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_credit_accounts_last_reset
		ON credit_accounts (last_reset)
	`).Error; errIndex != nil {
		return fmt.Errorf("db: create last reset index: %w", errIndex)
	}
	return nil
}

// migrateSQLite applies SQLite-specific schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errMigrate := autoMigrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_credit_accounts_last_reset
		ON credit_accounts (last_reset)
	`).Error; errIndex != nil {
		return fmt.Errorf("db: create last reset index: %w", errIndex)
	}
	return nil
}

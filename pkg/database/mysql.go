package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/mpotapov/pocket-reminder-bot/environments"
	"github.com/mpotapov/pocket-reminder-bot/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

func RunMigrations(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS deliveries (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		chat_id BIGINT NOT NULL,
		item_id VARCHAR(100) NOT NULL,
		item_title VARCHAR(500) NOT NULL DEFAULT '',
		item_url VARCHAR(2048) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'sent',
		fail_reason VARCHAR(1000),
		delivered_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_deliveries_chat_id (chat_id),
		INDEX idx_deliveries_status (status),
		INDEX idx_deliveries_delivered_at (delivered_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Infof("Database migrations completed")
	return nil
}

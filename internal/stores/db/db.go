// Package db opens the shared MySQL connection used by the gorm backed stores
package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethanbaker/receptionist/pkg/utils"
	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSNFromConfig builds a MySQL DSN. DATABASE_URL wins when set, otherwise the DSN is
// assembled from the MYSQL_* keys. ok is false when no database is configured
func DSNFromConfig(cfg *utils.Config) (dsn string, ok bool, err error) {
	if raw := strings.TrimSpace(cfg.Get("DATABASE_URL")); raw != "" {
		dsn, err := NormalizeDSN(raw)
		if err != nil {
			return "", false, err
		}
		return dsn, true, nil
	}

	host := cfg.Get("MYSQL_HOST")
	if host == "" {
		return "", false, nil
	}

	dbConfig := mysql.Config{
		User:                 cfg.Get("MYSQL_USERNAME"),
		Passwd:               cfg.Get("MYSQL_ROOT_PASSWORD"),
		Net:                  "tcp",
		Addr:                 fmt.Sprintf("%s:%s", host, cfg.GetWithDefault("MYSQL_PORT", "3306")),
		DBName:               cfg.Get("MYSQL_DATABASE"),
		ParseTime:            true,
		Loc:                  time.UTC,
		AllowNativePasswords: true,
	}

	return dbConfig.FormatDSN(), true, nil
}

// NormalizeDSN makes sure time columns scan into time.Time in UTC
func NormalizeDSN(raw string) (string, error) {
	dbConfig, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse database url: %w", err)
	}

	dbConfig.ParseTime = true
	dbConfig.Loc = time.UTC

	return dbConfig.FormatDSN(), nil
}

// Open connects to MySQL through gorm
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}

// Close closes the connection pool behind a gorm handle
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	return sqlDB.Close()
}

package database

import (
	"io/fs"
	"os"

	"github.com/ianibaeva/explore-with-me/internal/database/migrations"
)

func embeddedFS() fs.FS { return migrations.FS }

func configFromTestEnv() Config {
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	return Config{
		Host:            get("DB_HOST", "localhost"),
		Port:            get("DB_PORT", "5432"),
		User:            get("DB_USER", "postgres"),
		Password:        get("DB_PASSWORD", "postgres"),
		DBName:          get("DB_NAME", "ewm_test"),
		SSLMode:         get("DB_SSLMODE", "disable"),
		MaxConns:        4,
		ConnectAttempts: 3,
	}
}

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config carries the environment configuration of the service.
type Config struct {
	Env          string
	HTTPPort     string
	DBEngine     string // sqlite, postgres
	DBDSN        string
	RedisAddr    string
	PollInterval time.Duration
	StuckJobAge  time.Duration
}

// LoadConfig reads the environment. godotenv autoload already folded a
// local .env file in.
func LoadConfig() *Config {
	return &Config{
		Env:          env("ENV", "dev"),
		HTTPPort:     env("INTAKE_HTTP_PORT", "8040"),
		DBEngine:     env("INTAKE_DB_ENGINE", "sqlite"),
		DBDSN:        env("INTAKE_DB_DSN", ".tmp/db/intake.db"),
		RedisAddr:    env("INTAKE_REDIS_ADDR", "localhost:6379"),
		PollInterval: duration("INTAKE_POLL_INTERVAL", 5*time.Second),
		StuckJobAge:  duration("INTAKE_STUCK_JOB_AGE", 10*time.Minute),
	}
}

// GetDb opens the configured database.
func GetDb(cnf *Config) *gorm.DB {
	var db *gorm.DB
	var err error

	switch cnf.DBEngine {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cnf.DBDSN), &gorm.Config{})
	default:
		if dir := filepath.Dir(cnf.DBDSN); dir != "." {
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				logrus.Fatalf("error creating db directory: %v", err)
			}
		}
		db, err = gorm.Open(sqlite.Open(cnf.DBDSN), &gorm.Config{})
	}

	if err != nil {
		logrus.Fatalf("error connecting to database: %v", err)
	}

	return db
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	if d, err := time.ParseDuration(v); err == nil {
		return d
	}

	// plain numbers are seconds
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}

	logrus.Warnf("invalid duration %q for %s, using %s", v, key, fallback)
	return fallback
}

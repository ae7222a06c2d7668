package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mattvess/research-rag/internal/models"
)

// DB is the process-wide database handle, set by Setup.
var DB *gorm.DB

// Config holds database connection settings.
type Config struct {
	Type         string        // "sqlite" is the only supported type
	DSN          string        // database file path
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DefaultConfig returns the default database settings.
func DefaultConfig() *Config {
	return &Config{
		Type:         "sqlite",
		DSN:          "data/research-rag.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		MaxLifetime:  time.Hour,
	}
}

// Setup opens the database, configures pooling, and migrates the
// schema.
func Setup(cfg *Config, log *logrus.Logger) error {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "sqlite", "":
		if err := ensureDir(cfg.DSN); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
		dialector = sqlite.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	gormLogger := logger.New(
		&logrusWriter{log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("getting database connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := Migrate(db); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	DB = db
	log.Info("database connection established")
	return nil
}

// Migrate creates or updates the schema for all persisted models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.SessionRecord{},
		&models.DocumentRecord{},
		&models.ChunkRecord{},
	)
}

// MustDB returns the global handle and panics when Setup has not run.
func MustDB() *gorm.DB {
	if DB == nil {
		panic("database not initialized, call database.Setup first")
	}
	return DB
}

// Close releases the global database connection.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("getting database connection: %w", err)
	}
	return sqlDB.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// logrusWriter forwards gorm's logger output to logrus.
type logrusWriter struct {
	logger *logrus.Logger
}

func (w *logrusWriter) Printf(format string, args ...interface{}) {
	w.logger.Tracef(format, args...)
}

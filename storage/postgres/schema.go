package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// AssistantResponse is the GORM model of the knowledge-base table.
// Table routing is done with .Table(name) because the table name is
// configurable. The vector column is added separately with an explicit
// dimension, so migration skips it.
type AssistantResponse struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Content       string          `gorm:"column:content;type:text;not null"`
	AssistantID   int64           `gorm:"column:assistant_id;not null"`
	AccountID     int64           `gorm:"column:account_id;not null"`
	ContentVector pgvector.Vector `gorm:"column:content_vector;-:migration"`
	ProductID     *string         `gorm:"column:product_id;type:varchar(255)"`
	StoreID       *string         `gorm:"column:store_id;type:varchar(255)"`
	CreatedAt     time.Time       `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;not null"`
}

// gormLoggerAdapter adapts slog.Logger to gorm's logger.Writer interface.
type gormLoggerAdapter struct {
	logger *slog.Logger
}

func (gl *gormLoggerAdapter) Printf(msg string, items ...any) {
	gl.logger.Debug(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

// schemaStatements returns the DDL run around AutoMigrate, in order.
func schemaStatements(table string, dimensions int) (before, after []string) {
	t := quoteTable(table)
	index := pgx.Identifier{strings.ReplaceAll(table, ".", "_") + "_product_id_key"}.Sanitize()

	before = []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
	}
	after = []string{
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS content_vector vector(%d)", t, dimensions),
		fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (product_id)", index, t),
	}
	return before, after
}

// Migrate creates the vector extension, the knowledge-base table and its
// unique product_id index. It is idempotent.
func Migrate(ctx context.Context, connString, table string, dimensions int, logger *slog.Logger) error {
	if connString == "" {
		return ErrConnStringRequired
	}
	if dimensions < 1 {
		return fmt.Errorf("vector dimensions must be positive, got %d", dimensions)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "migrate", "table", table)

	db, err := gorm.Open(postgres.Open(connString), &gorm.Config{
		Logger: gormlogger.New(&gormLoggerAdapter{logger: logger}, gormlogger.Config{
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
			LogLevel:                  gormlogger.Warn,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	defer sqlDB.Close()

	db = db.WithContext(ctx)
	before, after := schemaStatements(table, dimensions)

	for _, stmt := range before {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	if err := db.Table(table).AutoMigrate(&AssistantResponse{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, stmt := range after {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	logger.Info("database migrations completed", "dimensions", dimensions)
	return nil
}

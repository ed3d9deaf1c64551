package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/poiesic/catalogsync/storage"
)

// ErrConnStringRequired is returned when no connection string is provided.
var ErrConnStringRequired = errors.New("connection string required")

// Connector opens knowledge-base sessions, one connection each.
type Connector struct {
	connString string
	table      string
	logger     *slog.Logger
}

var _ storage.Connector = (*Connector)(nil)

// Option configures a Connector.
type Option func(*Connector) error

// WithTable sets the knowledge-base table, optionally schema-qualified.
// Default is DefaultTable.
func WithTable(table string) Option {
	return func(c *Connector) error {
		if table == "" {
			return errors.New("table name cannot be empty")
		}
		c.table = table
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connector) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewConnector creates a Connector for connString.
func NewConnector(connString string, opts ...Option) (*Connector, error) {
	if connString == "" {
		return nil, ErrConnStringRequired
	}

	c := &Connector{
		connString: connString,
		table:      DefaultTable,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.logger = c.logger.With("component", "postgres", "table", c.table)
	return c, nil
}

// Table returns the configured table name.
func (c *Connector) Table() string {
	return c.table
}

// Open connects and registers the pgvector types on the new connection.
func (c *Connector) Open(ctx context.Context) (storage.CatalogRepository, error) {
	conn, err := pgx.Connect(ctx, c.connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pgxvec.RegisterTypes(ctx, conn); err != nil {
		_ = conn.Close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("register vector types: %w", err)
	}

	c.logger.Debug("connection opened")
	return newRepository(conn, c.table, c.logger), nil
}

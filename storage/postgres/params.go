package postgres

import (
	"net"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
)

// DefaultTable is the knowledge-base table written by the sync pipeline.
const DefaultTable = "captain_assistant_responses"

// Params are the connection settings of the knowledge-base database.
type Params struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnString renders p as a postgres:// URL accepted by pgx and gorm.
func (p Params) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, p.Port),
		Path:   "/" + p.Database,
	}
	if p.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{p.SSLMode}}.Encode()
	}
	return u.String()
}

// quoteTable sanitizes a possibly schema-qualified table name.
func quoteTable(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}

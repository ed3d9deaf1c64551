// Package postgres implements storage.CatalogRepository over PostgreSQL with
// the pgvector extension.
//
// The hot path uses pgx directly: one connection per sync cycle, an explicit
// transaction opened lazily by the first statement, and a savepoint around
// every statement so a rejected write fails only its own product. Vectors are
// bound with pgvector-go's pgx codec.
//
// Schema creation is separate (Migrate) and goes through gorm, since it runs
// once per deployment rather than per product.
package postgres

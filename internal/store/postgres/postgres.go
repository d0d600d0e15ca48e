// Package postgres is the production store. It keeps conversations,
// credentials, and the synced email/contact/calendar records that the
// retriever searches with pgvector.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/finclaw/internal/types"
)

//go:embed schema.sql
var schema string

// Store implements the conversation and credential stores on top of a
// pgxpool connection pool.
type Store struct {
	db *pgxpool.Pool
}

var (
	_ types.ConversationStore = (*Store)(nil)
	_ types.CredentialStore   = (*Store)(nil)
)

// New creates a Store on an existing pool.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Connect opens a pgx pool and verifies the connection.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Pool exposes the underlying pool for components that run their own SQL,
// such as the retriever.
func (s *Store) Pool() *pgxpool.Pool {
	return s.db
}

// DefaultEmbeddingDims is used when Migrate is given a non-positive
// dimension count.
const DefaultEmbeddingDims = 768

// Migrate applies the embedded schema with the pgvector columns sized to
// the configured embedding dimensions. Statements are idempotent, but the
// column size is fixed at first creation; changing dimensions later
// requires dropping the embedding columns.
func (s *Store) Migrate(ctx context.Context, embeddingDims int) error {
	if _, err := s.db.Exec(ctx, renderSchema(embeddingDims)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func renderSchema(embeddingDims int) string {
	if embeddingDims <= 0 {
		embeddingDims = DefaultEmbeddingDims
	}
	return strings.ReplaceAll(schema, "{{dims}}", strconv.Itoa(embeddingDims))
}

package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/semaphore"

	"github.com/user/finclaw/internal/gateway"
	"github.com/user/finclaw/pkg/llm"
)

// defaultBatchSize bounds how many rows one backfill pass embeds per table.
const defaultBatchSize = 50

// Backfiller embeds synced rows that do not have a vector yet. A weighted
// semaphore of one serializes passes so sync jobs and the CLI cannot
// double-embed, and the retry policy backs off instead of hammering the
// embedding API after a rate limit.
type Backfiller struct {
	db       *pgxpool.Pool
	embedder llm.Embedder
	retry    *gateway.RetryPolicy
	sem      *semaphore.Weighted
	batch    int
}

// NewBackfiller creates a Backfiller. batch <= 0 selects the default.
func NewBackfiller(db *pgxpool.Pool, embedder llm.Embedder, retry *gateway.RetryPolicy, batch int) *Backfiller {
	if retry == nil {
		retry = gateway.DefaultRetryPolicy()
	}
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Backfiller{
		db:       db,
		embedder: embedder,
		retry:    retry,
		sem:      semaphore.NewWeighted(1),
		batch:    batch,
	}
}

// pendingQuery lists rows missing an embedding together with the text to
// embed for them.
type pendingQuery struct {
	table  string
	listIt string
}

var pendingQueries = []pendingQuery{
	{
		table: "emails",
		listIt: `SELECT id, subject || E'\n' || body_text
			FROM emails WHERE embedding IS NULL LIMIT $1`,
	},
	{
		table: "contacts",
		listIt: `SELECT id, trim(first_name || ' ' || last_name || E'\n' || company || E'\n' || notes)
			FROM contacts WHERE embedding IS NULL LIMIT $1`,
	},
	{
		table: "calendar_events",
		listIt: `SELECT id, summary || E'\n' || description || E'\n' || location
			FROM calendar_events WHERE embedding IS NULL LIMIT $1`,
	},
}

// Run embeds up to one batch per table. It returns the number of rows
// embedded. A second caller while a pass is in flight returns immediately
// with zero work done.
func (b *Backfiller) Run(ctx context.Context) (int, error) {
	if !b.sem.TryAcquire(1) {
		slog.Debug("backfill already running")
		return 0, nil
	}
	defer b.sem.Release(1)

	total := 0
	for _, q := range pendingQueries {
		n, err := b.backfillTable(ctx, q)
		total += n
		if err != nil {
			return total, err
		}
	}
	if total > 0 {
		slog.Info("embedding backfill pass complete", "rows", total)
	}
	return total, nil
}

func (b *Backfiller) backfillTable(ctx context.Context, q pendingQuery) (int, error) {
	rows, err := b.db.Query(ctx, q.listIt, b.batch)
	if err != nil {
		return 0, fmt.Errorf("list pending %s: %w", q.table, err)
	}

	type pending struct {
		id   string
		text string
	}
	var items []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.text); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan pending %s: %w", q.table, err)
		}
		items = append(items, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("list pending %s: %w", q.table, err)
	}

	done := 0
	for _, item := range items {
		var vec []float32
		err := b.retry.Execute(func() error {
			var err error
			vec, err = b.embedder.Embed(ctx, item.text)
			return err
		})
		if err != nil {
			return done, fmt.Errorf("embed %s row %s: %w", q.table, item.id, err)
		}

		update := fmt.Sprintf(`UPDATE %s SET embedding = $2::vector WHERE id = $1`, q.table)
		if _, err := b.db.Exec(ctx, update, item.id, vectorLiteral(vec)); err != nil {
			return done, fmt.Errorf("store embedding for %s row %s: %w", q.table, item.id, err)
		}
		done++
	}
	return done, nil
}

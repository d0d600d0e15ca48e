// Package retriever ranks an owner's synced records by semantic
// similarity using pgvector cosine distance.
package retriever

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/finclaw/internal/types"
	"github.com/user/finclaw/pkg/llm"
)

// PGVector embeds the query text and runs nearest-neighbor searches
// against the emails, contacts, and calendar_events tables.
type PGVector struct {
	db       *pgxpool.Pool
	embedder llm.Embedder
}

var _ types.Retriever = (*PGVector)(nil)

// New creates a PGVector retriever on the given pool.
func New(db *pgxpool.Pool, embedder llm.Embedder) *PGVector {
	return &PGVector{db: db, embedder: embedder}
}

func (r *PGVector) SearchEmails(ctx context.Context, owner types.OwnerID, query string, limit int) ([]types.EmailRecord, error) {
	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, from_name, from_email, subject, body_text, email_date,
			(embedding <=> $2::vector) AS distance
		FROM emails
		WHERE owner_id = $1 AND embedding IS NOT NULL
		ORDER BY distance ASC
		LIMIT $3`,
		owner, vec, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search emails: %w", err)
	}
	defer rows.Close()

	var out []types.EmailRecord
	for rows.Next() {
		var rec types.EmailRecord
		if err := rows.Scan(&rec.ID, &rec.FromName, &rec.FromEmail, &rec.Subject, &rec.BodyText, &rec.Date, &rec.Distance); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PGVector) SearchContacts(ctx context.Context, owner types.OwnerID, query string, limit int) ([]types.ContactRecord, error) {
	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, hubspot_id, email, first_name, last_name, phone, company, notes,
			(embedding <=> $2::vector) AS distance
		FROM contacts
		WHERE owner_id = $1 AND embedding IS NOT NULL
		ORDER BY distance ASC
		LIMIT $3`,
		owner, vec, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	defer rows.Close()

	var out []types.ContactRecord
	for rows.Next() {
		var rec types.ContactRecord
		if err := rows.Scan(&rec.ID, &rec.HubspotID, &rec.Email, &rec.FirstName, &rec.LastName, &rec.Phone, &rec.Company, &rec.Notes, &rec.Distance); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PGVector) SearchEvents(ctx context.Context, owner types.OwnerID, query string, limit int, window types.TimeRange) ([]types.EventRecord, error) {
	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	sql, args := eventSearchQuery(owner, vec, limit, window)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	defer rows.Close()

	var out []types.EventRecord
	for rows.Next() {
		var rec types.EventRecord
		var attendees []byte
		if err := rows.Scan(&rec.EventID, &rec.Summary, &rec.Description, &rec.Location, &rec.Start, &rec.End,
			&attendees, &rec.OrganizerName, &rec.OrganizerEmail, &rec.HTMLLink, &rec.Status, &rec.Distance); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(attendees) > 0 {
			if err := json.Unmarshal(attendees, &rec.Attendees); err != nil {
				return nil, fmt.Errorf("unmarshal attendees: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// eventSearchQuery builds the nearest-neighbor query for events, adding
// start_time bounds for whichever ends of the window are set.
func eventSearchQuery(owner types.OwnerID, vec string, limit int, window types.TimeRange) (string, []any) {
	sql := `
		SELECT event_id, summary, description, location, start_time, end_time,
			attendees, organizer_name, organizer_email, html_link, status,
			(embedding <=> $2::vector) AS distance
		FROM calendar_events
		WHERE owner_id = $1 AND embedding IS NOT NULL`
	args := []any{owner, vec}
	if window.Min != nil {
		args = append(args, *window.Min)
		sql += fmt.Sprintf(" AND start_time >= $%d", len(args))
	}
	if window.Max != nil {
		args = append(args, *window.Max)
		sql += fmt.Sprintf(" AND start_time <= $%d", len(args))
	}
	args = append(args, limit)
	sql += fmt.Sprintf(" ORDER BY distance ASC LIMIT $%d", len(args))
	return sql, args
}

// embedQuery turns the query into a pgvector literal. An embedding failure
// is an error, never an empty result set.
func (r *PGVector) embedQuery(ctx context.Context, query string) (string, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	return vectorLiteral(vec), nil
}

// vectorLiteral renders a vector in pgvector's input format, "[1,2,3]".
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/user/finclaw/internal/types"
)

// Upserts for synced provider records. New and changed rows get a NULL
// embedding so the backfill picks them up.

// UpsertEmail stores one synced Gmail message for the owner. gmailID keys
// the row.
func (s *Store) UpsertEmail(ctx context.Context, owner types.OwnerID, gmailID string, rec types.EmailRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO emails (id, owner_id, gmail_id, from_name, from_email, subject, body_text, email_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_id, gmail_id) DO UPDATE SET
			from_name = EXCLUDED.from_name,
			from_email = EXCLUDED.from_email,
			subject = EXCLUDED.subject,
			body_text = EXCLUDED.body_text,
			email_date = EXCLUDED.email_date,
			embedding = NULL`,
		uuid.NewString(), owner, gmailID, rec.FromName, rec.FromEmail, rec.Subject, rec.BodyText, rec.Date,
	)
	if err != nil {
		return fmt.Errorf("upsert email: %w", err)
	}
	return nil
}

// EmailExists reports whether a synced email with this gmailID is already
// stored for the owner.
func (s *Store) EmailExists(ctx context.Context, owner types.OwnerID, gmailID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM emails WHERE owner_id = $1 AND gmail_id = $2)`,
		owner, gmailID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return exists, nil
}

// UpsertContact stores one synced CRM contact for the owner. hubspotID
// keys the row.
func (s *Store) UpsertContact(ctx context.Context, owner types.OwnerID, rec types.ContactRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO contacts (id, owner_id, hubspot_id, email, first_name, last_name, phone, company, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_id, hubspot_id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone = EXCLUDED.phone,
			company = EXCLUDED.company,
			notes = EXCLUDED.notes,
			embedding = NULL`,
		uuid.NewString(), owner, rec.HubspotID, rec.Email, rec.FirstName, rec.LastName, rec.Phone, rec.Company, rec.Notes,
	)
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

// UpsertEvent stores one synced calendar event for the owner. The provider
// event ID keys the row.
func (s *Store) UpsertEvent(ctx context.Context, owner types.OwnerID, rec types.EventRecord) error {
	attendees, err := json.Marshal(rec.Attendees)
	if err != nil {
		return fmt.Errorf("marshal attendees: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO calendar_events (id, owner_id, event_id, summary, description, location, start_time, end_time,
			attendees, organizer_name, organizer_email, html_link, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (owner_id, event_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			attendees = EXCLUDED.attendees,
			organizer_name = EXCLUDED.organizer_name,
			organizer_email = EXCLUDED.organizer_email,
			html_link = EXCLUDED.html_link,
			status = EXCLUDED.status,
			embedding = NULL`,
		uuid.NewString(), owner, rec.EventID, rec.Summary, rec.Description, rec.Location, rec.Start, rec.End,
		attendees, rec.OrganizerName, rec.OrganizerEmail, rec.HTMLLink, rec.Status,
	)
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}

package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/finclaw/internal/types"
)

// SyncedEmail is one fetched message keyed by its Gmail ID.
type SyncedEmail struct {
	GmailID string
	Record  types.EmailRecord
}

const (
	syncEmailBatch   = 50
	syncContactBatch = 100
	syncEventBatch   = 100
)

// RecordStore persists synced provider records.
type RecordStore interface {
	UpsertEmail(ctx context.Context, owner types.OwnerID, gmailID string, rec types.EmailRecord) error
	EmailExists(ctx context.Context, owner types.OwnerID, gmailID string) (bool, error)
	UpsertContact(ctx context.Context, owner types.OwnerID, rec types.ContactRecord) error
	UpsertEvent(ctx context.Context, owner types.OwnerID, rec types.EventRecord) error
}

// MailSource lists recent messages from the owner's mailbox.
type MailSource interface {
	ListRecent(ctx context.Context, max int) ([]SyncedEmail, error)
}

// ContactSource lists the owner's CRM contacts.
type ContactSource interface {
	ListContacts(ctx context.Context, limit int) ([]types.ContactRecord, error)
}

// EventSource lists the owner's upcoming calendar events.
type EventSource interface {
	ListUpcoming(ctx context.Context, max int) ([]types.EventRecord, error)
}

// Sources holds one owner's connected providers. A nil field means the
// provider is not connected and is skipped during sync.
type Sources struct {
	Mail     MailSource
	Contacts ContactSource
	Calendar EventSource
}

// Syncer pulls provider data into the record store so the retriever can
// search it. Rows changed by a sync get their embedding cleared; the
// backfill re-embeds them on its next pass.
type Syncer struct {
	store      RecordStore
	sourcesFor func(types.OwnerID) Sources
	onNewEmail func(types.OwnerID, types.EmailRecord)
}

// NewSyncer creates a Syncer. onNewEmail, if non-nil, is invoked once for
// each email that was not previously stored.
func NewSyncer(store RecordStore, sourcesFor func(types.OwnerID) Sources, onNewEmail func(types.OwnerID, types.EmailRecord)) *Syncer {
	return &Syncer{store: store, sourcesFor: sourcesFor, onNewEmail: onNewEmail}
}

// SyncOwner syncs all connected providers for one owner. Provider failures
// are logged and do not block the remaining providers.
func (s *Syncer) SyncOwner(ctx context.Context, owner types.OwnerID) error {
	src := s.sourcesFor(owner)
	var firstErr error

	if src.Mail != nil {
		if err := s.syncEmails(ctx, owner, src.Mail); err != nil {
			slog.Error("sync emails", "owner", string(owner), "error", err)
			firstErr = err
		}
	}
	if src.Contacts != nil {
		if err := s.syncContacts(ctx, owner, src.Contacts); err != nil {
			slog.Error("sync contacts", "owner", string(owner), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if src.Calendar != nil {
		if err := s.syncEvents(ctx, owner, src.Calendar); err != nil {
			slog.Error("sync calendar", "owner", string(owner), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Syncer) syncEmails(ctx context.Context, owner types.OwnerID, src MailSource) error {
	emails, err := src.ListRecent(ctx, syncEmailBatch)
	if err != nil {
		return fmt.Errorf("list recent emails: %w", err)
	}

	for _, email := range emails {
		rec := email.Record
		rec.BodyText = NormalizeBody(rec.BodyText)

		fresh := false
		if s.onNewEmail != nil {
			exists, err := s.store.EmailExists(ctx, owner, email.GmailID)
			if err != nil {
				return fmt.Errorf("check email %s: %w", email.GmailID, err)
			}
			fresh = !exists
		}

		if err := s.store.UpsertEmail(ctx, owner, email.GmailID, rec); err != nil {
			return err
		}
		if fresh {
			s.onNewEmail(owner, rec)
		}
	}
	return nil
}

func (s *Syncer) syncContacts(ctx context.Context, owner types.OwnerID, src ContactSource) error {
	contacts, err := src.ListContacts(ctx, syncContactBatch)
	if err != nil {
		return fmt.Errorf("list contacts: %w", err)
	}
	for _, contact := range contacts {
		if err := s.store.UpsertContact(ctx, owner, contact); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) syncEvents(ctx context.Context, owner types.OwnerID, src EventSource) error {
	events, err := src.ListUpcoming(ctx, syncEventBatch)
	if err != nil {
		return fmt.Errorf("list upcoming events: %w", err)
	}
	for _, event := range events {
		if err := s.store.UpsertEvent(ctx, owner, event); err != nil {
			return err
		}
	}
	return nil
}

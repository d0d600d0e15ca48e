package types

import (
	"context"
	"time"
)

type ConversationStore interface {
	CreateMessage(ctx context.Context, msg *Message) error
	// RecentMessages returns up to limit messages for the thread,
	// oldest-first.
	RecentMessages(ctx context.Context, owner OwnerID, thread ThreadID, limit int) ([]*Message, error)
	ListMessages(ctx context.Context, owner OwnerID, thread ThreadID) ([]*Message, error)

	CreateThread(ctx context.Context, thread *Thread) error
	GetThread(ctx context.Context, owner OwnerID, id ThreadID) (*Thread, error)
	// ResolveThread returns the owner's most recently used thread,
	// creating one if none exists.
	ResolveThread(ctx context.Context, owner OwnerID) (*Thread, error)
	ListThreads(ctx context.Context, owner OwnerID) ([]*Thread, error)
	DeleteThread(ctx context.Context, owner OwnerID, id ThreadID) error
	SetThreadTitle(ctx context.Context, owner OwnerID, id ThreadID, title string) error
	SetThreadContext(ctx context.Context, owner OwnerID, id ThreadID, filter ContextFilter) error
	// TouchThread advances last_message_at; it never moves backwards.
	TouchThread(ctx context.Context, owner OwnerID, id ThreadID, at time.Time) error
}

type CredentialStore interface {
	Token(ctx context.Context, owner OwnerID, provider string) (*OAuthToken, error)
	SaveToken(ctx context.Context, token *OAuthToken) error
	// Connected reports whether a token exists for the owner/provider
	// pair without loading it.
	Connected(ctx context.Context, owner OwnerID, provider string) (bool, error)
}

// Retriever ranks an owner's records by semantic similarity to a query.
// Results are ordered by ascending distance (most similar first). An empty
// slice with a nil error means there is genuinely nothing relevant; an
// embedding or storage failure is reported as an error, never as an empty
// result.
type Retriever interface {
	SearchEmails(ctx context.Context, owner OwnerID, query string, limit int) ([]EmailRecord, error)
	SearchContacts(ctx context.Context, owner OwnerID, query string, limit int) ([]ContactRecord, error)
	SearchEvents(ctx context.Context, owner OwnerID, query string, limit int, window TimeRange) ([]EventRecord, error)
}

// MailSender sends email on behalf of the owner it was constructed for.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// CRMClient manages contacts in the owner's CRM.
type CRMClient interface {
	ListContacts(ctx context.Context, limit int) ([]ContactRecord, error)
	CreateContact(ctx context.Context, contact NewContact) (string, error)
	// FindContactByEmail returns nil with no error when no contact matches.
	FindContactByEmail(ctx context.Context, email string) (*ContactRecord, error)
	AddNote(ctx context.Context, contactID, note string) error
}

// CalendarClient creates events in the owner's calendar.
type CalendarClient interface {
	CreateEvent(ctx context.Context, event NewEvent) (*CreatedEvent, error)
}

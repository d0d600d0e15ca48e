package types

import (
	"time"
)

// Role identifies who produced a message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContextFilter restricts which data sources a thread's searches should
// prefer. Stored on the thread and prepended to outgoing user messages.
type ContextFilter string

const (
	ContextAll      ContextFilter = "all"
	ContextEmails   ContextFilter = "emails"
	ContextContacts ContextFilter = "contacts"
	ContextCalendar ContextFilter = "calendar"
)

// Message is one turn of a conversation. Messages are immutable once
// created; creation order defines conversation order.
type Message struct {
	ID        MessageID       `json:"id"`
	OwnerID   OwnerID         `json:"owner_id"`
	ThreadID  ThreadID        `json:"thread_id,omitempty"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Metadata  MessageMetadata `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}

// MessageMetadata carries per-message bookkeeping. Tool calls are embedded
// here rather than persisted as their own records.
type MessageMetadata struct {
	ToolCalls []ToolCall    `json:"tool_calls,omitempty"`
	Model     string        `json:"model,omitempty"`
	Context   ContextFilter `json:"context,omitempty"`
	Error     bool          `json:"error,omitempty"`
}

// ToolCall is one executed tool invocation within a single agent turn.
// The result is always a map so it can be serialized back to the model.
type ToolCall struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
	Result map[string]any `json:"result"`
}

// Thread groups messages into a titled conversation.
type Thread struct {
	ID            ThreadID      `json:"id"`
	OwnerID       OwnerID       `json:"owner_id"`
	Title         string        `json:"title"`
	Context       ContextFilter `json:"context"`
	LastMessageAt time.Time     `json:"last_message_at"`
	CreatedAt     time.Time     `json:"created_at"`
}

// DefaultThreadTitle is the placeholder title given to a thread before its
// first user message, from which the real title is derived.
const DefaultThreadTitle = "New conversation"

// EmailRecord is a retriever hit from the owner's email corpus.
// Distance is cosine distance in [0,2]; lower is more similar.
type EmailRecord struct {
	ID        string    `json:"id"`
	FromName  string    `json:"from_name"`
	FromEmail string    `json:"from_email"`
	Subject   string    `json:"subject"`
	BodyText  string    `json:"body_text"`
	Date      time.Time `json:"email_date"`
	Distance  float64   `json:"distance"`
}

// ContactRecord is a retriever or CRM hit from the owner's contacts.
type ContactRecord struct {
	ID        string  `json:"id"`
	HubspotID string  `json:"hubspot_id,omitempty"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     string  `json:"phone,omitempty"`
	Company   string  `json:"company,omitempty"`
	Notes     string  `json:"notes,omitempty"`
	Distance  float64 `json:"distance"`
}

// Name returns the contact's display name, falling back to the email
// address when no name parts are set.
func (c ContactRecord) Name() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	case c.LastName != "":
		return c.LastName
	default:
		return c.Email
	}
}

// TimeRange bounds an event search by start time. Nil endpoints are
// unbounded.
type TimeRange struct {
	Min *time.Time
	Max *time.Time
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if r.Min != nil && t.Before(*r.Min) {
		return false
	}
	if r.Max != nil && t.After(*r.Max) {
		return false
	}
	return true
}

// EventRecord is a retriever hit from the owner's calendar.
type EventRecord struct {
	EventID        string    `json:"event_id"`
	Summary        string    `json:"summary"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location,omitempty"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Attendees      []string  `json:"attendees,omitempty"`
	OrganizerName  string    `json:"organizer_name,omitempty"`
	OrganizerEmail string    `json:"organizer_email,omitempty"`
	HTMLLink       string    `json:"html_link,omitempty"`
	Status         string    `json:"status,omitempty"`
	Distance       float64   `json:"distance"`
}

// NewContact holds the fields accepted when creating a CRM contact.
// Email is the only required property.
type NewContact struct {
	Email     string `json:"email"`
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
}

// NewEvent holds the fields accepted when creating a calendar event.
type NewEvent struct {
	Summary     string   `json:"summary"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Attendees   []string `json:"attendees,omitempty"`
	Conference  bool     `json:"conference"`
}

// CreatedEvent describes a calendar event after the provider accepted it.
type CreatedEvent struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	Start    string `json:"start"`
	End      string `json:"end"`
	HTMLLink string `json:"link,omitempty"`
	MeetLink string `json:"meet_link,omitempty"`
}

// OAuthToken is a stored provider credential for one owner.
type OAuthToken struct {
	OwnerID      OwnerID   `json:"owner_id"`
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token needs a refresh.
func (t *OAuthToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Credential provider names.
const (
	ProviderGoogle  = "google"
	ProviderHubspot = "hubspot"
)

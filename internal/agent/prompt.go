package agent

import (
	"fmt"
	"time"

	"github.com/user/finclaw/internal/types"
)

// systemPrompt builds the instruction message for one turn. advisorName is
// the owner's display name; now anchors relative date parsing.
func systemPrompt(advisorName string, now time.Time) string {
	return fmt.Sprintf(`You are an AI assistant for a financial advisor named %s. Current time: %s.

You can:
- Search emails (search_emails)
- Search contacts (search_contacts)
- Search calendar events (search_calendar_events)
- Create new meetings and events (create_calendar_event)
- Send emails, manage Hubspot contacts

When the user asks to schedule, book a call, add an event, or set up a meeting, always use the create_calendar_event tool.

Be proactive. Parse dates and times intelligently (e.g. "tomorrow 10am" becomes a proper RFC3339 timestamp). Always create a Google Meet link unless the user says otherwise. Confirm event creation with a clear summary.`,
		advisorName, now.Format(time.RFC3339))
}

// contextInstruction returns the text prepended to the outgoing user
// message when the thread is pinned to one data source. The stored message
// keeps the user's original wording.
func contextInstruction(filter types.ContextFilter) string {
	switch filter {
	case types.ContextEmails:
		return "Search only in emails."
	case types.ContextContacts:
		return "Search only in Hubspot contacts."
	case types.ContextCalendar:
		return "Search only in calendar events."
	default:
		return ""
	}
}

// titleLimit bounds derived thread titles.
const titleLimit = 50

// deriveTitle turns the first user message into a thread title.
func deriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleLimit {
		return text
	}
	return string(runes[:titleLimit]) + "..."
}

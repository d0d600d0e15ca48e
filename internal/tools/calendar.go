package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/user/finclaw/internal/types"
)

const defaultEventLimit = 10

// SearchCalendarEvents performs semantic search over the owner's
// calendar events.
type SearchCalendarEvents struct {
	owner     types.OwnerID
	retriever types.Retriever
}

func NewSearchCalendarEvents(owner types.OwnerID, retriever types.Retriever) *SearchCalendarEvents {
	return &SearchCalendarEvents{owner: owner, retriever: retriever}
}

func (s *SearchCalendarEvents) Name() string { return "search_calendar_events" }
func (s *SearchCalendarEvents) Description() string {
	return "Search through the user's calendar events using semantic search. Use this when the user asks about meetings, appointments, or their schedule. Pass timeMin/timeMax to restrict results to a date range."
}
func (s *SearchCalendarEvents) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "The search query to find relevant calendar events"},
			"limit": {"type": "integer", "description": "Maximum number of results to return"},
			"timeMin": {"type": "string", "description": "Only include events starting at or after this time, RFC3339 format"},
			"timeMax": {"type": "string", "description": "Only include events starting at or before this time, RFC3339 format"}
		},
		"required": ["query"]
	}`)
}

func (s *SearchCalendarEvents) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var params struct {
		Query   string `json:"query"`
		Limit   int    `json:"limit"`
		TimeMin string `json:"timeMin"`
		TimeMax string `json:"timeMax"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, Preconditionf("parse args: %v", err)
	}
	if params.Query == "" {
		return nil, Preconditionf("query is required")
	}
	if params.Limit <= 0 {
		params.Limit = defaultEventLimit
	}

	var window types.TimeRange
	if params.TimeMin != "" {
		t, err := time.Parse(time.RFC3339, params.TimeMin)
		if err != nil {
			return nil, Preconditionf("timeMin must be RFC3339: %v", err)
		}
		window.Min = &t
	}
	if params.TimeMax != "" {
		t, err := time.Parse(time.RFC3339, params.TimeMax)
		if err != nil {
			return nil, Preconditionf("timeMax must be RFC3339: %v", err)
		}
		window.Max = &t
	}

	results, err := s.retriever.SearchEvents(ctx, s.owner, params.Query, params.Limit, window)
	if err != nil {
		return nil, Transientf("calendar search unavailable: %v", err)
	}
	if len(results) == 0 {
		return Result{"message": "No relevant events found"}, nil
	}

	events := make([]Result, 0, len(results))
	for _, ev := range results {
		organizer := ev.OrganizerName
		if organizer == "" {
			organizer = ev.OrganizerEmail
		}
		events = append(events, Result{
			"id":        ev.EventID,
			"title":     ev.Summary,
			"start":     ev.Start.Format("2006-01-02 15:04"),
			"end":       ev.End.Format("2006-01-02 15:04"),
			"location":  ev.Location,
			"attendees": strings.Join(ev.Attendees, ", "),
			"organizer": organizer,
			"link":      ev.HTMLLink,
			"status":    ev.Status,
		})
	}
	return Result{"count": len(results), "events": events}, nil
}

// CreateCalendarEvent creates an event on the owner's primary calendar.
type CreateCalendarEvent struct {
	calendar types.CalendarClient
}

func NewCreateCalendarEvent(calendar types.CalendarClient) *CreateCalendarEvent {
	return &CreateCalendarEvent{calendar: calendar}
}

func (c *CreateCalendarEvent) Name() string { return "create_calendar_event" }
func (c *CreateCalendarEvent) Description() string {
	return "Create a new event on the user's Google Calendar. Use this when the user asks to schedule a meeting or appointment. Times must be RFC3339, e.g. 2025-01-15T14:00:00-05:00."
}
func (c *CreateCalendarEvent) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"summary": {"type": "string", "description": "Event title"},
			"description": {"type": "string", "description": "Event description"},
			"location": {"type": "string", "description": "Event location"},
			"start": {"type": "string", "description": "Start time in RFC3339 format"},
			"end": {"type": "string", "description": "End time in RFC3339 format"},
			"attendees": {"type": "array", "items": {"type": "string"}, "description": "Attendee email addresses"},
			"conference": {"type": "boolean", "description": "Attach a Google Meet link, defaults to true"}
		},
		"required": ["summary", "start", "end"]
	}`)
}

func (c *CreateCalendarEvent) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	if c.calendar == nil {
		return nil, Preconditionf("Calendar not connected")
	}

	var params struct {
		Summary     string   `json:"summary"`
		Description string   `json:"description"`
		Location    string   `json:"location"`
		Start       string   `json:"start"`
		End         string   `json:"end"`
		Attendees   []string `json:"attendees"`
		Conference  *bool    `json:"conference"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, Preconditionf("parse args: %v", err)
	}
	if params.Summary == "" || params.Start == "" || params.End == "" {
		return nil, Preconditionf("summary, start and end are required")
	}

	ev := types.NewEvent{
		Summary:     params.Summary,
		Description: params.Description,
		Location:    params.Location,
		Start:       params.Start,
		End:         params.End,
		Attendees:   params.Attendees,
		Conference:  params.Conference == nil || *params.Conference,
	}

	created, err := c.calendar.CreateEvent(ctx, ev)
	if err != nil {
		return nil, Transientf("failed to create event: %v", err)
	}
	return Result{
		"success": true,
		"message": "Event created: " + created.Summary,
		"event": Result{
			"id":        created.ID,
			"summary":   created.Summary,
			"start":     created.Start,
			"end":       created.End,
			"link":      created.HTMLLink,
			"meet_link": created.MeetLink,
		},
	}, nil
}

package integrations

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/user/finclaw/internal/types"
)

const calendarBaseURL = "https://www.googleapis.com"

// Calendar creates and syncs events on the owner's primary calendar.
type Calendar struct {
	tokens  *TokenSource
	baseURL string
	client  *http.Client
}

var _ types.CalendarClient = (*Calendar)(nil)

// NewCalendar creates a Calendar client.
func NewCalendar(tokens *TokenSource) *Calendar {
	return &Calendar{
		tokens:  tokens,
		baseURL: calendarBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type calendarTime struct {
	DateTime string `json:"dateTime,omitempty"`
}

type calendarAttendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type calendarEvent struct {
	ID          string             `json:"id,omitempty"`
	Summary     string             `json:"summary,omitempty"`
	Description string             `json:"description,omitempty"`
	Location    string             `json:"location,omitempty"`
	Start       calendarTime       `json:"start,omitempty"`
	End         calendarTime       `json:"end,omitempty"`
	Attendees   []calendarAttendee `json:"attendees,omitempty"`
	Status      string             `json:"status,omitempty"`
	HTMLLink    string             `json:"htmlLink,omitempty"`
	HangoutLink string             `json:"hangoutLink,omitempty"`
	Organizer   *struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	} `json:"organizer,omitempty"`
	ConferenceData *conferenceData `json:"conferenceData,omitempty"`
}

type conferenceData struct {
	CreateRequest *conferenceCreateRequest `json:"createRequest,omitempty"`
}

type conferenceCreateRequest struct {
	RequestID             string `json:"requestId"`
	ConferenceSolutionKey struct {
		Type string `json:"type"`
	} `json:"conferenceSolutionKey"`
}

// CreateEvent creates the event on the primary calendar. Attendees get
// email invites; a Google Meet link is attached unless disabled.
func (c *Calendar) CreateEvent(ctx context.Context, event types.NewEvent) (*types.CreatedEvent, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body := calendarEvent{
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Start:       calendarTime{DateTime: event.Start},
		End:         calendarTime{DateTime: event.End},
	}
	for _, email := range event.Attendees {
		body.Attendees = append(body.Attendees, calendarAttendee{Email: email})
	}
	if event.Conference {
		req := &conferenceCreateRequest{RequestID: uuid.NewString()}
		req.ConferenceSolutionKey.Type = "hangoutsMeet"
		body.ConferenceData = &conferenceData{CreateRequest: req}
	}

	q := url.Values{
		"conferenceDataVersion": {"1"},
		"sendUpdates":           {"all"},
	}
	u := c.baseURL + "/calendar/v3/calendars/primary/events?" + q.Encode()

	var created calendarEvent
	if err := doJSON(ctx, c.client, http.MethodPost, u, token, body, &created); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	return &types.CreatedEvent{
		ID:       created.ID,
		Summary:  created.Summary,
		Start:    created.Start.DateTime,
		End:      created.End.DateTime,
		HTMLLink: created.HTMLLink,
		MeetLink: created.HangoutLink,
	}, nil
}

// ListUpcoming fetches up to max upcoming events for syncing.
func (c *Calendar) ListUpcoming(ctx context.Context, max int) ([]types.EventRecord, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{
		"maxResults":   {strconv.Itoa(max)},
		"timeMin":      {time.Now().Format(time.RFC3339)},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
	}
	var resp struct {
		Items []calendarEvent `json:"items"`
	}
	u := c.baseURL + "/calendar/v3/calendars/primary/events?" + q.Encode()
	if err := doJSON(ctx, c.client, http.MethodGet, u, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	out := make([]types.EventRecord, 0, len(resp.Items))
	for _, ev := range resp.Items {
		rec := types.EventRecord{
			EventID:     ev.ID,
			Summary:     ev.Summary,
			Description: ev.Description,
			Location:    ev.Location,
			HTMLLink:    ev.HTMLLink,
			Status:      ev.Status,
		}
		if t, err := time.Parse(time.RFC3339, ev.Start.DateTime); err == nil {
			rec.Start = t
		}
		if t, err := time.Parse(time.RFC3339, ev.End.DateTime); err == nil {
			rec.End = t
		}
		for _, a := range ev.Attendees {
			rec.Attendees = append(rec.Attendees, a.Email)
		}
		if ev.Organizer != nil {
			rec.OrganizerName = ev.Organizer.DisplayName
			rec.OrganizerEmail = ev.Organizer.Email
		}
		out = append(out, rec)
	}
	return out, nil
}

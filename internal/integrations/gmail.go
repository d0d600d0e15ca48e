package integrations

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/user/finclaw/internal/ingest"
	"github.com/user/finclaw/internal/types"
)

const gmailBaseURL = "https://gmail.googleapis.com"

// Gmail sends and syncs mail for one owner.
type Gmail struct {
	tokens  *TokenSource
	baseURL string
	from    string
	client  *http.Client
}

var _ types.MailSender = (*Gmail)(nil)

// NewGmail creates a Gmail client. from is the owner's address, used in
// outgoing headers.
func NewGmail(tokens *TokenSource, from string) *Gmail {
	return &Gmail{
		tokens:  tokens,
		baseURL: gmailBaseURL,
		from:    from,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Send delivers a plain-text email through the Gmail API.
func (g *Gmail) Send(ctx context.Context, to, subject, body string) error {
	token, err := g.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", g.from, to, subject, body)
	payload := map[string]string{
		"raw": base64.URLEncoding.EncodeToString([]byte(raw)),
	}
	u := g.baseURL + "/gmail/v1/users/me/messages/send"
	if err := doJSON(ctx, g.client, http.MethodPost, u, token, payload, nil); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// SyncedEmail is one fetched message keyed by its Gmail ID.
type SyncedEmail = ingest.SyncedEmail

type gmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type gmailPart struct {
	MimeType string `json:"mimeType"`
	Body     struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []gmailPart `json:"parts"`
}

type gmailMessage struct {
	ID      string `json:"id"`
	Payload struct {
		Headers []gmailHeader `json:"headers"`
		gmailPart
	} `json:"payload"`
}

// ListRecent fetches up to max recent inbox messages with their bodies.
func (g *Gmail) ListRecent(ctx context.Context, max int) ([]SyncedEmail, error) {
	token, err := g.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{
		"maxResults": {strconv.Itoa(max)},
		"q":          {"in:inbox"},
	}
	var list struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	u := g.baseURL + "/gmail/v1/users/me/messages?" + q.Encode()
	if err := doJSON(ctx, g.client, http.MethodGet, u, token, nil, &list); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]SyncedEmail, 0, len(list.Messages))
	for _, m := range list.Messages {
		var msg gmailMessage
		mu := g.baseURL + "/gmail/v1/users/me/messages/" + m.ID + "?format=full"
		if err := doJSON(ctx, g.client, http.MethodGet, mu, token, nil, &msg); err != nil {
			return out, fmt.Errorf("get message %s: %w", m.ID, err)
		}
		out = append(out, SyncedEmail{GmailID: msg.ID, Record: parseGmailMessage(&msg)})
	}
	return out, nil
}

func parseGmailMessage(msg *gmailMessage) types.EmailRecord {
	rec := types.EmailRecord{ID: msg.ID}
	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			if addr, err := mail.ParseAddress(h.Value); err == nil {
				rec.FromName = addr.Name
				rec.FromEmail = addr.Address
			} else {
				rec.FromEmail = h.Value
			}
		case "subject":
			rec.Subject = h.Value
		case "date":
			if t, err := mail.ParseDate(h.Value); err == nil {
				rec.Date = t
			}
		}
	}
	rec.BodyText = extractBody(&msg.Payload.gmailPart)
	return rec
}

// extractBody walks the MIME tree preferring text/plain; an HTML-only
// message is converted to markdown so the stored text stays searchable.
func extractBody(part *gmailPart) string {
	if plain := findPart(part, "text/plain"); plain != "" {
		return plain
	}
	if html := findPart(part, "text/html"); html != "" {
		if text, err := ingest.HTMLToText(html); err == nil {
			return text
		}
	}
	return ""
}

func findPart(part *gmailPart, mimeType string) string {
	if part.MimeType == mimeType && part.Body.Data != "" {
		if decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(part.Body.Data); err == nil {
			return string(decoded)
		}
	}
	for i := range part.Parts {
		if body := findPart(&part.Parts[i], mimeType); body != "" {
			return body
		}
	}
	return ""
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/user/finclaw/internal/types"
)

const (
	defaultSearchLimit = 5

	// Previews are bounded to control the payload size sent back to
	// the model.
	maxBodyPreview  = 300
	maxNotesPreview = 200
)

// SearchEmails performs semantic search over the owner's emails.
type SearchEmails struct {
	owner     types.OwnerID
	retriever types.Retriever
}

func NewSearchEmails(owner types.OwnerID, retriever types.Retriever) *SearchEmails {
	return &SearchEmails{owner: owner, retriever: retriever}
}

func (s *SearchEmails) Name() string { return "search_emails" }
func (s *SearchEmails) Description() string {
	return "Search through the user's emails using semantic search. Use this when the user asks about email content, who said what, or any information that might be in emails."
}
func (s *SearchEmails) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "The search query to find relevant emails"},
			"limit": {"type": "integer", "description": "Maximum number of results to return"}
		},
		"required": ["query"]
	}`)
}

func (s *SearchEmails) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var params struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, Preconditionf("parse args: %v", err)
	}
	if params.Query == "" {
		return nil, Preconditionf("query is required")
	}
	if params.Limit <= 0 {
		params.Limit = defaultSearchLimit
	}

	results, err := s.retriever.SearchEmails(ctx, s.owner, params.Query, params.Limit)
	if err != nil {
		return nil, Transientf("email search unavailable: %v", err)
	}
	if len(results) == 0 {
		return Result{"message": "No relevant emails found"}, nil
	}

	emails := make([]Result, 0, len(results))
	for _, rec := range results {
		emails = append(emails, Result{
			"from":    fmt.Sprintf("%s <%s>", rec.FromName, rec.FromEmail),
			"subject": rec.Subject,
			"date":    rec.Date.Format("2006-01-02 15:04"),
			"preview": truncate(rec.BodyText, maxBodyPreview),
		})
	}
	return Result{"count": len(results), "emails": emails}, nil
}

// SendEmail sends an email through the owner's mail provider.
type SendEmail struct {
	mail types.MailSender
}

func NewSendEmail(mail types.MailSender) *SendEmail {
	return &SendEmail{mail: mail}
}

func (s *SendEmail) Name() string { return "send_email" }
func (s *SendEmail) Description() string {
	return "Send an email via Gmail. Use this when the user asks you to send an email or contact someone."
}
func (s *SendEmail) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"to": {"type": "string", "description": "Recipient email address"},
			"subject": {"type": "string", "description": "Email subject line"},
			"body": {"type": "string", "description": "Email body content"}
		},
		"required": ["to", "subject", "body"]
	}`)
}

func (s *SendEmail) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	if s.mail == nil {
		return nil, Preconditionf("Gmail not connected")
	}

	var params struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, Preconditionf("parse args: %v", err)
	}
	if params.To == "" || params.Subject == "" || params.Body == "" {
		return nil, Preconditionf("to, subject and body are required")
	}

	if err := s.mail.Send(ctx, params.To, params.Subject, params.Body); err != nil {
		return nil, Transientf("failed to send email: %v", err)
	}
	return Result{"success": true, "message": "Email sent to " + params.To}, nil
}

package tools

import (
	"context"
	"encoding/json"

	"github.com/user/finclaw/internal/types"
)

const defaultContactLimit = 20

// SearchContacts performs semantic search over the owner's CRM contacts.
type SearchContacts struct {
	owner     types.OwnerID
	retriever types.Retriever
}

func NewSearchContacts(owner types.OwnerID, retriever types.Retriever) *SearchContacts {
	return &SearchContacts{owner: owner, retriever: retriever}
}

func (s *SearchContacts) Name() string { return "search_contacts" }
func (s *SearchContacts) Description() string {
	return "Search through Hubspot CRM contacts using semantic search. Use this when the user asks about clients, contacts, or people in their CRM."
}
func (s *SearchContacts) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "The search query to find relevant contacts"},
			"limit": {"type": "integer", "description": "Maximum number of results to return"}
		},
		"required": ["query"]
	}`)
}

func (s *SearchContacts) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
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

	results, err := s.retriever.SearchContacts(ctx, s.owner, params.Query, params.Limit)
	if err != nil {
		return nil, Transientf("contact search unavailable: %v", err)
	}
	if len(results) == 0 {
		return Result{"message": "No relevant contacts found"}, nil
	}
	return Result{"count": len(results), "contacts": contactResults(results)}, nil
}

// GetAllContacts lists contacts directly from the CRM.
type GetAllContacts struct {
	crm types.CRMClient
}

func NewGetAllContacts(crm types.CRMClient) *GetAllContacts {
	return &GetAllContacts{crm: crm}
}

func (g *GetAllContacts) Name() string { return "get_all_contacts" }
func (g *GetAllContacts) Description() string {
	return "Get a list of all contacts from Hubspot CRM. Use this when the user wants to see all their contacts or clients."
}
func (g *GetAllContacts) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"limit": {"type": "integer", "description": "Maximum number of contacts to return"}
		}
	}`)
}

func (g *GetAllContacts) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	if g.crm == nil {
		return nil, Preconditionf("Hubspot not connected")
	}

	var params struct {
		Limit int `json:"limit"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, Preconditionf("parse args: %v", err)
		}
	}
	if params.Limit <= 0 {
		params.Limit = defaultContactLimit
	}

	contacts, err := g.crm.ListContacts(ctx, params.Limit)
	if err != nil {
		return nil, Transientf("failed to list contacts: %v", err)
	}
	if len(contacts) == 0 {
		return Result{"message": "No relevant contacts found"}, nil
	}
	return Result{"count": len(contacts), "contacts": contactResults(contacts)}, nil
}

// CreateContact creates a new contact in the CRM.
type CreateContact struct {
	crm types.CRMClient
}

func NewCreateContact(crm types.CRMClient) *CreateContact {
	return &CreateContact{crm: crm}
}

func (c *CreateContact) Name() string { return "create_hubspot_contact" }
func (c *CreateContact) Description() string {
	return "Create a new contact in Hubspot CRM. Use this when the user asks to add a new client or contact."
}
func (c *CreateContact) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"email": {"type": "string", "description": "Contact email address"},
			"firstname": {"type": "string", "description": "Contact first name"},
			"lastname": {"type": "string", "description": "Contact last name"},
			"phone": {"type": "string", "description": "Contact phone number"},
			"company": {"type": "string", "description": "Contact company name"}
		},
		"required": ["email"]
	}`)
}

func (c *CreateContact) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	if c.crm == nil {
		return nil, Preconditionf("Hubspot not connected")
	}

	var params types.NewContact
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, Preconditionf("parse args: %v", err)
	}
	if params.Email == "" {
		return nil, Preconditionf("email is required")
	}

	if _, err := c.crm.CreateContact(ctx, params); err != nil {
		return nil, Transientf("failed to create contact: %v", err)
	}
	return Result{"success": true, "message": "Contact created: " + params.Email}, nil
}

// AddContactNote attaches a note to an existing CRM contact, looked up
// by email.
type AddContactNote struct {
	crm types.CRMClient
}

func NewAddContactNote(crm types.CRMClient) *AddContactNote {
	return &AddContactNote{crm: crm}
}

func (a *AddContactNote) Name() string { return "add_contact_note" }
func (a *AddContactNote) Description() string {
	return "Add a note to an existing Hubspot contact. Use this after meetings or calls to record what was discussed."
}
func (a *AddContactNote) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"contact_email": {"type": "string", "description": "Email of the contact to add the note to"},
			"note": {"type": "string", "description": "The note content"}
		},
		"required": ["contact_email", "note"]
	}`)
}

func (a *AddContactNote) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	if a.crm == nil {
		return nil, Preconditionf("Hubspot not connected")
	}

	var params struct {
		Email string `json:"contact_email"`
		Note  string `json:"note"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, Preconditionf("parse args: %v", err)
	}
	if params.Email == "" || params.Note == "" {
		return nil, Preconditionf("contact_email and note are required")
	}

	contact, err := a.crm.FindContactByEmail(ctx, params.Email)
	if err != nil {
		return nil, Transientf("contact lookup failed: %v", err)
	}
	if contact == nil {
		return Result{"error": "Contact not found"}, nil
	}

	if err := a.crm.AddNote(ctx, contact.ID, params.Note); err != nil {
		return nil, Transientf("failed to add note: %v", err)
	}
	return Result{"success": true, "message": "Note added to " + params.Email}, nil
}

func contactResults(contacts []types.ContactRecord) []Result {
	out := make([]Result, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, Result{
			"name":    c.Name(),
			"email":   c.Email,
			"phone":   c.Phone,
			"company": c.Company,
			"notes":   truncate(c.Notes, maxNotesPreview),
		})
	}
	return out
}

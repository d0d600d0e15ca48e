package integrations

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/user/finclaw/internal/types"
)

const hubspotBaseURL = "https://api.hubapi.com"

// contactProperties are the CRM fields synced and surfaced to the model.
var contactProperties = []string{"firstname", "lastname", "email", "phone", "company"}

// Hubspot is a CRM client for one owner.
type Hubspot struct {
	tokens  *TokenSource
	baseURL string
	client  *http.Client
}

var _ types.CRMClient = (*Hubspot)(nil)

// NewHubspot creates a Hubspot client.
func NewHubspot(tokens *TokenSource) *Hubspot {
	return &Hubspot{
		tokens:  tokens,
		baseURL: hubspotBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type hubspotContact struct {
	ID         string `json:"id"`
	Properties struct {
		FirstName string `json:"firstname"`
		LastName  string `json:"lastname"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		Company   string `json:"company"`
	} `json:"properties"`
}

func (hc hubspotContact) record() types.ContactRecord {
	return types.ContactRecord{
		ID:        hc.ID,
		HubspotID: hc.ID,
		Email:     hc.Properties.Email,
		FirstName: hc.Properties.FirstName,
		LastName:  hc.Properties.LastName,
		Phone:     hc.Properties.Phone,
		Company:   hc.Properties.Company,
	}
}

func (h *Hubspot) ListContacts(ctx context.Context, limit int) ([]types.ContactRecord, error) {
	token, err := h.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{
		"limit": {strconv.Itoa(limit)},
	}
	for _, p := range contactProperties {
		q.Add("properties", p)
	}

	var resp struct {
		Results []hubspotContact `json:"results"`
	}
	u := h.baseURL + "/crm/v3/objects/contacts?" + q.Encode()
	if err := doJSON(ctx, h.client, http.MethodGet, u, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	out := make([]types.ContactRecord, 0, len(resp.Results))
	for _, hc := range resp.Results {
		out = append(out, hc.record())
	}
	return out, nil
}

func (h *Hubspot) CreateContact(ctx context.Context, contact types.NewContact) (string, error) {
	token, err := h.tokens.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"properties": map[string]string{
			"email":     contact.Email,
			"firstname": contact.FirstName,
			"lastname":  contact.LastName,
			"phone":     contact.Phone,
			"company":   contact.Company,
		},
	}
	var resp hubspotContact
	u := h.baseURL + "/crm/v3/objects/contacts"
	if err := doJSON(ctx, h.client, http.MethodPost, u, token, payload, &resp); err != nil {
		return "", fmt.Errorf("create contact: %w", err)
	}
	return resp.ID, nil
}

func (h *Hubspot) FindContactByEmail(ctx context.Context, email string) (*types.ContactRecord, error) {
	token, err := h.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"filterGroups": []map[string]any{{
			"filters": []map[string]string{{
				"propertyName": "email",
				"operator":     "EQ",
				"value":        email,
			}},
		}},
		"properties": contactProperties,
		"limit":      1,
	}
	var resp struct {
		Total   int              `json:"total"`
		Results []hubspotContact `json:"results"`
	}
	u := h.baseURL + "/crm/v3/objects/contacts/search"
	if err := doJSON(ctx, h.client, http.MethodPost, u, token, payload, &resp); err != nil {
		return nil, fmt.Errorf("search contact: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	rec := resp.Results[0].record()
	return &rec, nil
}

func (h *Hubspot) AddNote(ctx context.Context, contactID, note string) error {
	token, err := h.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"properties": map[string]string{
			"hs_note_body": note,
			"hs_timestamp": strconv.FormatInt(time.Now().UnixMilli(), 10),
		},
	}
	var created struct {
		ID string `json:"id"`
	}
	u := h.baseURL + "/crm/v3/objects/notes"
	if err := doJSON(ctx, h.client, http.MethodPost, u, token, payload, &created); err != nil {
		return fmt.Errorf("create note: %w", err)
	}

	assoc := fmt.Sprintf("%s/crm/v3/objects/notes/%s/associations/contacts/%s/note_to_contact",
		h.baseURL, created.ID, contactID)
	if err := doJSON(ctx, h.client, http.MethodPut, assoc, token, nil, nil); err != nil {
		return fmt.Errorf("associate note: %w", err)
	}
	return nil
}

package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewThreadID(t *testing.T) {
	id := NewThreadID()
	if id == "" {
		t.Error("expected non-empty ThreadID")
	}
	if len(string(id)) != 36 {
		t.Errorf("expected UUID format, got %s", id)
	}
}

func TestParseOwnerID(t *testing.T) {
	if _, err := ParseOwnerID("not-a-uuid"); err == nil {
		t.Error("expected error for invalid owner id")
	}
	owner, err := ParseOwnerID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	if err != nil {
		t.Fatal(err)
	}
	if owner != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Errorf("unexpected owner id %s", owner)
	}
}

func TestMessageSerialization(t *testing.T) {
	msg := Message{
		ID:       NewMessageID(),
		OwnerID:  "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		ThreadID: NewThreadID(),
		Role:     RoleAssistant,
		Content:  "Found 3 emails.",
		Metadata: MessageMetadata{
			Model: "gpt-4o-mini",
			ToolCalls: []ToolCall{{
				Tool:   "search_emails",
				Args:   map[string]any{"query": "meetings"},
				Result: map[string]any{"count": 3},
			}},
		},
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Role != RoleAssistant {
		t.Errorf("expected role %s, got %s", RoleAssistant, decoded.Role)
	}
	if len(decoded.Metadata.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(decoded.Metadata.ToolCalls))
	}
	if decoded.Metadata.ToolCalls[0].Tool != "search_emails" {
		t.Errorf("unexpected tool name %q", decoded.Metadata.ToolCalls[0].Tool)
	}
}

func TestOAuthTokenExpired(t *testing.T) {
	now := time.Now()
	tok := OAuthToken{ExpiresAt: now.Add(-time.Minute)}
	if !tok.Expired(now) {
		t.Error("expected token to be expired")
	}
	tok.ExpiresAt = now.Add(time.Hour)
	if tok.Expired(now) {
		t.Error("expected token to be valid")
	}
	tok.ExpiresAt = time.Time{}
	if tok.Expired(now) {
		t.Error("zero expiry should never count as expired")
	}
}

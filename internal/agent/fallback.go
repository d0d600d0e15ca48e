package agent

import (
	"fmt"
	"strings"

	"github.com/user/finclaw/internal/tools"
	"github.com/user/finclaw/internal/types"
)

// synthesizeFallback builds an answer directly from tool results for turns
// where the model never produced one. The output leans on the same result
// shapes the tools hand back to the model.
func synthesizeFallback(calls []types.ToolCall) string {
	if len(calls) == 0 {
		return "I wasn't able to come up with an answer for that. Could you try rephrasing?"
	}

	var parts []string
	for _, call := range calls {
		if msg, ok := call.Result["error"].(string); ok {
			parts = append(parts, fmt.Sprintf("The %s step failed: %s", call.Tool, msg))
			continue
		}
		if msg, ok := call.Result["message"].(string); ok {
			parts = append(parts, msg)
			continue
		}

		switch call.Tool {
		case "search_emails":
			parts = append(parts, summarizeEmails(call.Result))
		case "search_contacts", "get_all_contacts":
			parts = append(parts, summarizeContacts(call.Result))
		case "search_calendar_events":
			parts = append(parts, summarizeEvents(call.Result))
		default:
			parts = append(parts, fmt.Sprintf("Completed %s.", call.Tool))
		}
	}
	return strings.Join(parts, "\n\n")
}

func summarizeEmails(res map[string]any) string {
	items := resultSlice(res, "emails")
	if len(items) == 0 {
		return "No relevant emails found"
	}
	lines := []string{fmt.Sprintf("Here is what I found in your emails (%d):", len(items))}
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("- From %s: %s", field(item, "from"), field(item, "subject")))
	}
	return strings.Join(lines, "\n")
}

func summarizeContacts(res map[string]any) string {
	items := resultSlice(res, "contacts")
	if len(items) == 0 {
		return "No relevant contacts found"
	}
	lines := []string{fmt.Sprintf("Here are the contacts I found (%d):", len(items))}
	for _, item := range items {
		line := "- " + field(item, "name")
		if email := field(item, "email"); email != "" {
			line += " <" + email + ">"
		}
		if company := field(item, "company"); company != "" {
			line += ", " + company
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func summarizeEvents(res map[string]any) string {
	items := resultSlice(res, "events")
	if len(items) == 0 {
		return "No relevant events found"
	}
	lines := []string{fmt.Sprintf("Here are the events I found (%d):", len(items))}
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("- %s on %s", field(item, "title"), field(item, "start")))
	}
	return strings.Join(lines, "\n")
}

// resultSlice pulls a list of maps out of a tool result regardless of
// whether it round-tripped through JSON.
func resultSlice(res map[string]any, key string) []map[string]any {
	raw, ok := res[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []map[string]any:
		return v
	case []tools.Result:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			out = append(out, item)
		}
		return out
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func field(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

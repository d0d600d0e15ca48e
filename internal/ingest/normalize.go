// Package ingest normalizes synced provider content before it is stored
// and embedded.
package ingest

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// maxBodyChars bounds stored email bodies so a newsletter blast does not
// dominate the embedding input.
const maxBodyChars = 20000

// HTMLToText converts an HTML email body to markdown text.
func HTMLToText(html string) (string, error) {
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// NormalizeBody collapses whitespace runs and truncates overly long bodies.
func NormalizeBody(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	text = strings.TrimSpace(text)
	if len(text) > maxBodyChars {
		text = text[:maxBodyChars] + "\n\n[Content truncated]"
	}
	return text
}

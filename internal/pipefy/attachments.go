package pipefy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/caseflow-systems/docingest/internal/logging"
	"github.com/caseflow-systems/docingest/internal/models"
)

// CardAttachments resolves the file attachments referenced by a card's field
// values. A missing card or an API failure yields an empty slice, never an
// error: a card with zero attachments is a valid, common case.
func (c *Client) CardAttachments(ctx context.Context, cardID string) []models.Attachment {
	fields, err := c.CardFields(ctx, cardID)
	if err != nil {
		c.logger.WarnContext(ctx, "attachment resolution failed",
			logging.CardID(cardID), logging.Err(err))
		return nil
	}

	attachments := ResolveAttachments(fields)
	c.logger.InfoContext(ctx, "attachments resolved",
		logging.CardID(cardID), "count", len(attachments))
	return attachments
}

// ResolveAttachments extracts attachments from raw card field values.
// A value that is a JSON array of strings contributes one attachment per
// http(s) element; a plain value that itself is a URL contributes a single
// attachment. Everything else is ignored.
func ResolveAttachments(fields []CardField) []models.Attachment {
	var attachments []models.Attachment
	for _, field := range fields {
		if field.Value == "" {
			continue
		}

		var urls []string
		if err := json.Unmarshal([]byte(field.Value), &urls); err == nil {
			for _, raw := range urls {
				if strings.HasPrefix(raw, "http") {
					attachments = append(attachments, models.Attachment{
						Name:      filenameFromURL(raw, field.Name),
						SourceURL: raw,
					})
				}
			}
			continue
		}

		if strings.HasPrefix(field.Value, "http") {
			attachments = append(attachments, models.Attachment{
				Name:      filenameFromURL(field.Value, field.Name),
				SourceURL: field.Value,
			})
		}
	}
	return attachments
}

// filenameFromURL derives a filename from the last path segment of a URL,
// query string stripped. Empty results fall back to "{fieldName}.pdf".
func filenameFromURL(rawURL, fieldName string) string {
	segments := strings.Split(rawURL, "/")
	name := segments[len(segments)-1]
	name, _, _ = strings.Cut(name, "?")
	if name == "" {
		if fieldName == "" {
			fieldName = "documento"
		}
		return fmt.Sprintf("%s.pdf", fieldName)
	}
	return name
}

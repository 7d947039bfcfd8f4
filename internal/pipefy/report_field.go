package pipefy

import (
	"context"
	"fmt"
	"strings"

	"github.com/caseflow-systems/docingest/internal/logging"
)

// LocateReportField discovers the id of the analysis report field on a card.
// It prefers an exact, case-sensitive match of the configured field name
// against the field label or name; failing that it falls back to a
// case-insensitive substring match over the configured keywords. The id is
// deliberately not cached: cards can be reconfigured between webhooks, and
// one extra round-trip per update is cheaper than a stale id.
func (c *Client) LocateReportField(ctx context.Context, cardID string) (string, error) {
	fields, err := c.CardFields(ctx, cardID)
	if err != nil {
		return "", err
	}

	// Exact match first.
	for _, field := range fields {
		label := strings.TrimSpace(field.Label)
		name := strings.TrimSpace(field.Name)
		if label == c.reportField || name == c.reportField {
			return field.ID, nil
		}
	}

	// Keyword fallback handles spacing and capitalization variants.
	for _, field := range fields {
		label := strings.ToLower(field.Label)
		name := strings.ToLower(field.Name)
		for _, keyword := range c.reportKeywords {
			if strings.Contains(label, keyword) || strings.Contains(name, keyword) {
				c.logger.InfoContext(ctx, "report field matched by keyword",
					logging.CardID(cardID), "keyword", keyword, "field_id", field.ID)
				return field.ID, nil
			}
		}
	}

	return "", ErrFieldNotFound
}

const updateCardFieldMutation = `mutation UpdateCardField($input: UpdateCardFieldInput!) {
  updateCardField(input: $input) {
    card {
      id
      title
    }
  }
}`

// UpdateReportField writes content into the card's report field. The field
// id is resolved on every call. The mutation is built from a variables map
// so embedded quotes and newlines never touch the query text. Success is
// judged by the mutation echoing the card id back; there is no retry at
// this layer.
func (c *Client) UpdateReportField(ctx context.Context, cardID, content string) error {
	fieldID, err := c.LocateReportField(ctx, cardID)
	if err != nil {
		return fmt.Errorf("locate report field: %w", err)
	}

	var payload struct {
		UpdateCardField *struct {
			Card *struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"card"`
		} `json:"updateCardField"`
	}

	req := graphqlRequest{
		Query: updateCardFieldMutation,
		Variables: map[string]interface{}{
			"input": map[string]interface{}{
				"card_id":   cardID,
				"field_id":  fieldID,
				"new_value": content,
			},
		},
	}
	if err := c.do(ctx, req, &payload); err != nil {
		return fmt.Errorf("update card field: %w", err)
	}

	if payload.UpdateCardField == nil || payload.UpdateCardField.Card == nil ||
		payload.UpdateCardField.Card.ID == "" {
		return fmt.Errorf("update card field: mutation did not echo card id")
	}

	c.logger.InfoContext(ctx, "report field updated",
		logging.CardID(cardID), "field_id", fieldID, "content_len", len(content))
	return nil
}

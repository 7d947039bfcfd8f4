// Package pipefy is the client for the workflow tool's GraphQL API. It
// resolves card attachments, locates the analysis report field on a card and
// writes report content back into it.
package pipefy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/caseflow-systems/docingest/internal/logging"
)

var (
	// ErrCardNotFound is returned when the API answers but the card does
	// not exist or carries no data.
	ErrCardNotFound = errors.New("card not found")

	// ErrFieldNotFound is returned when no field on the card matches the
	// configured report field name or any of its keywords.
	ErrFieldNotFound = errors.New("report field not found on card")
)

// Config holds the client configuration.
type Config struct {
	URL            string
	Token          string
	Timeout        time.Duration
	ReportField    string
	ReportKeywords []string
}

// Client communicates with the workflow GraphQL API.
type Client struct {
	baseURL        string
	token          string
	reportField    string
	reportKeywords []string
	httpClient     *http.Client
	logger         *logging.Logger
}

// New constructs a new Client.
func New(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:        cfg.URL,
		token:          cfg.Token,
		reportField:    cfg.ReportField,
		reportKeywords: cfg.ReportKeywords,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// CardField is one entry of a card's field list.
type CardField struct {
	ID    string
	Label string
	Type  string
	Name  string
	Value string
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// do posts a GraphQL request and decodes the data payload into out. A
// non-empty errors array is treated as a failed call.
func (c *Client) do(ctx context.Context, req graphqlRequest, out interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.token)
	request.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graphql response status %d", resp.StatusCode)
	}

	var gqlResp graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}

	if out != nil {
		if err := json.Unmarshal(gqlResp.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

const cardFieldsQuery = `query GetCardFields($cardId: ID!) {
  card(id: $cardId) {
    id
    fields {
      field {
        id
        label
        type
      }
      name
      value
    }
  }
}`

// CardFields retrieves the field list (schema and raw values) of a card.
func (c *Client) CardFields(ctx context.Context, cardID string) ([]CardField, error) {
	var payload struct {
		Card *struct {
			ID     string `json:"id"`
			Fields []struct {
				Field struct {
					ID    string `json:"id"`
					Label string `json:"label"`
					Type  string `json:"type"`
				} `json:"field"`
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"fields"`
		} `json:"card"`
	}

	req := graphqlRequest{
		Query:     cardFieldsQuery,
		Variables: map[string]interface{}{"cardId": cardID},
	}
	if err := c.do(ctx, req, &payload); err != nil {
		return nil, err
	}

	if payload.Card == nil {
		return nil, ErrCardNotFound
	}

	fields := make([]CardField, 0, len(payload.Card.Fields))
	for _, f := range payload.Card.Fields {
		fields = append(fields, CardField{
			ID:    f.Field.ID,
			Label: f.Field.Label,
			Type:  f.Field.Type,
			Name:  f.Name,
			Value: f.Value,
		})
	}
	return fields, nil
}

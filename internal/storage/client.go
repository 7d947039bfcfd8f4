// Package storage uploads case documents to the object store and resolves
// their public URLs. The store speaks the Supabase storage HTTP API: objects
// live under a bucket, keyed by case id and filename, and uploads carry an
// x-upsert header so retransfers of the same document overwrite in place.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/caseflow-systems/docingest/internal/logging"
)

type Config struct {
	URL        string
	Bucket     string
	ServiceKey string
	Timeout    time.Duration
}

type Client struct {
	baseURL    string
	bucket     string
	serviceKey string
	httpClient *http.Client
	logger     *logging.Logger
}

func New(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    cfg.URL,
		bucket:     cfg.Bucket,
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Upload stores the document under {bucket}/{caseID}/{filename} and returns
// its public URL. Uploading the same key twice overwrites the object.
func (c *Client) Upload(ctx context.Context, caseID, filename string, data []byte, contentType string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("storage client not configured")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	uploadURL := fmt.Sprintf("%s/object/%s/%s/%s",
		c.baseURL, c.bucket, url.PathEscape(caseID), url.PathEscape(filename))

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.serviceKey)
	request.Header.Set("Content-Type", contentType)
	request.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("storage response status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.InfoContext(ctx, "document uploaded",
		logging.CaseID(caseID), logging.Document(filename), "size", len(data))

	return c.PublicURL(caseID, filename), nil
}

// PublicURL returns the unauthenticated read URL for a stored object.
func (c *Client) PublicURL(caseID, filename string) string {
	return fmt.Sprintf("%s/object/public/%s/%s/%s",
		c.baseURL, c.bucket, url.PathEscape(caseID), url.PathEscape(filename))
}

// Package analysis invokes the document analysis service and writes the
// resulting report back to the workflow card. Invocations are synchronous
// on the wire but always run off the request path, behind the dispatcher.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/caseflow-systems/docingest/internal/models"
)

type Config struct {
	URL           string
	ProbeTimeout  time.Duration
	InvokeTimeout time.Duration
}

type Client struct {
	baseURL      string
	probeClient  *http.Client
	invokeClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		baseURL: cfg.URL,
		probeClient: &http.Client{
			Timeout: cfg.ProbeTimeout,
		},
		// The analysis run itself can take many minutes, and a cold
		// started service adds more on top. The invoke timeout is
		// sized for both.
		invokeClient: &http.Client{
			Timeout: cfg.InvokeTimeout,
		},
	}
}

// Probe checks the service health endpoint. A failed probe is advisory:
// the caller proceeds to invoke either way, the probe just gives the
// service a chance to wake before the real request lands.
func (c *Client) Probe(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.probeClient.Do(request)
	if err != nil {
		return fmt.Errorf("probe service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("probe response status %d", resp.StatusCode)
	}
	return nil
}

// invokeResult carries the raw invocation response before interpretation.
type invokeResult struct {
	statusCode int
	body       []byte
}

func (c *Client) invoke(ctx context.Context, req models.AnalysisRequest) (*invokeResult, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze/sync", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := c.invokeClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &invokeResult{statusCode: resp.StatusCode, body: body}, nil
}

// isTimeout reports whether the invocation failed on a deadline rather
// than a refusal.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

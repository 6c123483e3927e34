// Package compositor calls the image compositor that renders watermarked and
// room-visualization variants of an artwork's primary image.
package compositor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"artmarket/internal/domain/derivatives"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// maxErrorBody limits how much of a failed response ends up in task errors.
const maxErrorBody = 2048

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type regenerateRequest struct {
	ArtworkID          string `json:"artwork_id"`
	ForceWatermark     bool   `json:"force_watermark"`
	ForceVisualization bool   `json:"force_visualization"`
}

// Regenerate asks the compositor to rebuild the requested derivatives. Any
// non-2xx answer is an error.
func (c *Client) Regenerate(ctx context.Context, artworkID string, req derivatives.Request) (derivatives.Result, error) {
	body, err := json.Marshal(regenerateRequest{
		ArtworkID:          artworkID,
		ForceWatermark:     req.Watermark,
		ForceVisualization: req.Visualization,
	})
	if err != nil {
		return derivatives.Result{}, errors.Wrap(err, "encode request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/regenerate", bytes.NewReader(body))
	if err != nil {
		return derivatives.Result{}, errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return derivatives.Result{}, errors.Wrap(err, "call compositor")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return derivatives.Result{}, errors.Errorf("compositor returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var res derivatives.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return derivatives.Result{}, errors.Wrap(err, "decode compositor response")
	}
	return res, nil
}

package cdn

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const storageEndpoint = "https://storage.bunnycdn.com"

// Client uploads static assets to a bunny.net storage zone and returns the
// pull-zone URLs they are served from.
type Client struct {
	http    *http.Client
	apiKey  string
	zone    string
	baseURL string
}

func New(cdnURL, apiKey, zone string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		apiKey:  apiKey,
		zone:    zone,
		baseURL: strings.TrimRight(cdnURL, "/"),
	}
}

func (c *Client) Upload(ctx context.Context, path string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/%s/%s", storageEndpoint, c.zone, path), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("cdn upload: %w", err)
	}
	req.Header.Set("AccessKey", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("cdn upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("cdn upload: status %d: %s", resp.StatusCode, body)
	}
	return c.baseURL + "/" + path, nil
}

func (c *Client) Delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/%s/%s", storageEndpoint, c.zone, path), nil)
	if err != nil {
		return fmt.Errorf("cdn delete: %w", err)
	}
	req.Header.Set("AccessKey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cdn delete: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("cdn delete: status %d", resp.StatusCode)
	}
	return nil
}

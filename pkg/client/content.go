package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Put uploads data through the gateway and returns its content ref.
func (c *Client) Put(ctx context.Context, data []byte, name string) (string, error) {
	var q url.Values
	if name != "" {
		q = url.Values{"name": {name}}
	}
	resp, err := c.send(ctx, http.MethodPost, "/v1/content", q, bytes.NewReader(data), "application/octet-stream")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Ref string `json:"ref"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode content response: %w", err)
	}
	return out.Ref, nil
}

// Get downloads the payload stored under ref.
func (c *Client) Get(ctx context.Context, ref string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/v1/content/"+url.PathEscape(ref), nil, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content %s: %w", ref, err)
	}
	return data, nil
}

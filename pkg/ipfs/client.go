// Package ipfs talks to an IPFS Cluster HTTP API for uploads and pins and to
// an IPFS node's HTTP API for reads.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
)

// ErrNotFound is returned by Get when the node does not have the CID.
var ErrNotFound = fmt.Errorf("ipfs: content %w", apperrors.ErrNotFound)

// Client wraps the IPFS Cluster and IPFS node HTTP APIs
type Client struct {
	apiURL     string
	ipfsAPIURL string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds configuration for the IPFS client
type Config struct {
	// ClusterAPIURL is the base URL for IPFS Cluster HTTP API (e.g., "http://localhost:9094")
	// If empty, defaults to "http://localhost:9094"
	ClusterAPIURL string

	// IPFSAPIURL is the base URL of the IPFS node HTTP API used for reads.
	// If empty, defaults to "http://localhost:5001"
	IPFSAPIURL string

	// Timeout is the timeout for client operations
	// If zero, defaults to 60 seconds
	Timeout time.Duration
}

// AddResponse represents the response from adding content to IPFS
type AddResponse struct {
	Name string `json:"name"`
	Cid  string `json:"cid"`
	Size int64  `json:"size"`
}

// PinResponse represents the response from pinning a CID
type PinResponse struct {
	Cid  string `json:"cid"`
	Name string `json:"name"`
}

// NewClient creates a new IPFS Cluster client wrapper
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	apiURL := cfg.ClusterAPIURL
	if apiURL == "" {
		apiURL = "http://localhost:9094"
	}
	ipfsAPIURL := cfg.IPFSAPIURL
	if ipfsAPIURL == "" {
		ipfsAPIURL = "http://localhost:5001"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiURL:     apiURL,
		ipfsAPIURL: ipfsAPIURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Health checks if the IPFS Cluster API is healthy
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.apiURL+"/id", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewServiceError("ipfs-cluster", "health check request failed", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.NewServiceError("ipfs-cluster", fmt.Sprintf("health check failed with status: %d", resp.StatusCode), resp.StatusCode, nil)
	}

	return nil
}

// Add uploads data as one file and returns the CID
func (c *Client) Add(ctx context.Context, data []byte, name string) (*AddResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to copy data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL+"/add", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create add request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewServiceError("ipfs-cluster", "add request failed", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperrors.NewServiceError("ipfs-cluster",
			fmt.Sprintf("add failed with status %d: %s", resp.StatusCode, string(body)), resp.StatusCode, nil)
	}

	// IPFS Cluster streams NDJSON. Drain it fully so the cluster does not
	// cancel pinning, and keep the last object.
	dec := json.NewDecoder(resp.Body)
	var last AddResponse
	var hasResult bool
	for {
		var chunk AddResponse
		if err := dec.Decode(&chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode add response: %w", err)
		}
		last = chunk
		hasResult = true
	}

	if !hasResult || last.Cid == "" {
		return nil, fmt.Errorf("add response missing CID")
	}
	if last.Name == "" && name != "" {
		last.Name = name
	}
	// Report the original byte count, not the DAG size.
	last.Size = int64(len(data))

	c.logger.Debug("Added content to IPFS", zap.String("cid", last.Cid), zap.Int64("size", last.Size))
	return &last, nil
}

// Pin pins a CID with the given replication factor. Options go in the query
// string, which is what IPFS Cluster expects.
func (c *Client) Pin(ctx context.Context, cid string, name string, replicationFactor int) (*PinResponse, error) {
	values := url.Values{}
	values.Set("replication-min", fmt.Sprintf("%d", replicationFactor))
	values.Set("replication-max", fmt.Sprintf("%d", replicationFactor))
	if name != "" {
		values.Set("name", name)
	}
	reqURL := c.apiURL + "/pins/" + url.PathEscape(cid) + "?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create pin request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewServiceError("ipfs-cluster", "pin request failed", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperrors.NewServiceError("ipfs-cluster",
			fmt.Sprintf("pin failed with status %d: %s", resp.StatusCode, string(body)), resp.StatusCode, nil)
	}

	var result PinResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode pin response: %w", err)
	}
	if result.Name == "" && name != "" {
		result.Name = name
	}
	if result.Cid == "" {
		result.Cid = cid
	}
	return &result, nil
}

// Get reads up to maxBytes of a CID from the IPFS node. maxBytes <= 0 means
// no limit.
func (c *Client) Get(ctx context.Context, cid string, maxBytes int64) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/api/v0/cat?arg=%s", c.ipfsAPIURL, url.QueryEscape(cid))
	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create get request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewServiceError("ipfs", "get request failed", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperrors.NewServiceError("ipfs",
			fmt.Sprintf("get failed with status %d: %s", resp.StatusCode, string(body)), resp.StatusCode, nil)
	}

	var r io.Reader = resp.Body
	if maxBytes > 0 {
		r = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, apperrors.NewValidationError("cid", fmt.Sprintf("content exceeds %d bytes", maxBytes), cid)
	}
	return data, nil
}

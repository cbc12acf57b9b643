// Package olric caches immutable blobs in an Olric cluster.
package olric

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	olriclib "github.com/olric-data/olric"
	"go.uber.org/zap"
)

// DefaultDMap is the distributed map blobs are cached in.
const DefaultDMap = "wavechat_content"

// Client wraps an Olric cluster client for distributed cache operations
type Client struct {
	client  olriclib.Client
	dmap    olriclib.DMap
	timeout time.Duration
	logger  *zap.Logger
}

// Config holds configuration for the Olric client
type Config struct {
	// Servers is a list of Olric server addresses (e.g., ["localhost:3320"])
	// If empty, defaults to ["localhost:3320"]
	Servers []string

	// DMap is the map name. Defaults to DefaultDMap.
	DMap string

	// Timeout is the timeout for client operations
	// If zero, defaults to 10 seconds
	Timeout time.Duration
}

// NewClient creates a new Olric client wrapper
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	servers := cfg.Servers
	if len(servers) == 0 {
		servers = []string{"localhost:3320"}
	}
	name := cfg.DMap
	if name == "" {
		name = DefaultDMap
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := olriclib.NewClusterClient(servers)
	if err != nil {
		return nil, fmt.Errorf("failed to create Olric cluster client: %w", err)
	}

	dm, err := client.NewDMap(name)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("failed to create DMap %s: %w", name, err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		client:  client,
		dmap:    dm,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Get returns the cached value. A miss is (nil, false, nil).
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	gr, err := c.dmap.Get(ctx, key)
	if err != nil {
		if isKeyNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("olric get %s: %w", key, err)
	}
	val, err := gr.Byte()
	if err != nil {
		return nil, false, fmt.Errorf("olric decode %s: %w", key, err)
	}
	return val, true, nil
}

// Put stores value under key. ttl <= 0 keeps it until evicted.
func (c *Client) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var err error
	if ttl > 0 {
		err = c.dmap.Put(ctx, key, value, olriclib.EX(ttl))
	} else {
		err = c.dmap.Put(ctx, key, value)
	}
	if err != nil {
		return fmt.Errorf("olric put %s: %w", key, err)
	}
	return nil
}

// Health checks if the Olric client is healthy
func (c *Client) Health(ctx context.Context) error {
	dm, err := c.client.NewDMap("_health_check")
	if err != nil {
		return fmt.Errorf("failed to create DMap for health check: %w", err)
	}

	testKey := fmt.Sprintf("_health_%d", time.Now().UnixNano())

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := dm.Put(ctx, testKey, "ok"); err != nil {
		return fmt.Errorf("health check put failed: %w", err)
	}

	gr, err := dm.Get(ctx, testKey)
	if err != nil {
		return fmt.Errorf("health check get failed: %w", err)
	}

	val, err := gr.String()
	if err != nil {
		return fmt.Errorf("health check value decode failed: %w", err)
	}
	if val != "ok" {
		return fmt.Errorf("health check value mismatch: expected 'ok', got '%s'", val)
	}

	_, _ = dm.Delete(ctx, testKey)
	return nil
}

// Close closes the Olric client connection
func (c *Client) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Close(ctx)
}

func isKeyNotFound(err error) bool {
	return errors.Is(err, olriclib.ErrKeyNotFound) || strings.Contains(err.Error(), "key not found")
}

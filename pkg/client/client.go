// Package client talks to a chatd gateway over HTTP. A Client satisfies
// chat.Ledger and content.Store, so a chat.Messenger can run against a remote
// gateway exactly as it does in-process.
package client

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/wavechat/pkg/logging"
)

const (
	DefaultGatewayURL = "http://localhost:8080"
	DefaultTimeout    = 30 * time.Second
)

// Config holds the gateway location and an optional pre-issued token.
type Config struct {
	GatewayURL string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is a gateway client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.ColoredLogger

	mu     sync.RWMutex
	token  string
	wallet string
}

// NewClient creates a new gateway client
func NewClient(cfg Config, logger *logging.ColoredLogger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.GatewayURL), "/")
	if base == "" {
		base = DefaultGatewayURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid gateway url %q: %w", cfg.GatewayURL, err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{baseURL: base, httpClient: httpClient, logger: logger, token: cfg.Token}, nil
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Wallet returns the wallet of the last successful SignIn.
func (c *Client) Wallet() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wallet
}

// SetToken replaces the bearer token, e.g. with one saved from a previous run.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Session is the result of a sign-in.
type Session struct {
	Token     string    `json:"token"`
	Wallet    string    `json:"wallet"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignIn runs the challenge/verify flow with key and keeps the issued token.
func (c *Client) SignIn(ctx context.Context, key *ecdsa.PrivateKey) (*Session, error) {
	wallet := strings.ToLower(ethcrypto.PubkeyToAddress(key.PublicKey).Hex())

	var ch struct {
		Nonce string `json:"nonce"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/challenge", nil, map[string]string{"wallet": wallet}, &ch); err != nil {
		return nil, err
	}

	sig, err := PersonalSign(key, ch.Nonce)
	if err != nil {
		return nil, err
	}

	var sess Session
	req := map[string]string{"wallet": wallet, "nonce": ch.Nonce, "signature": sig}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/verify", nil, req, &sess); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token, c.wallet = sess.Token, sess.Wallet
	c.mu.Unlock()
	c.logger.ComponentInfo(logging.ComponentGeneral, "Signed in to gateway",
		zap.String("wallet", sess.Wallet), zap.Time("expires_at", sess.ExpiresAt))
	return &sess, nil
}

// PersonalSign signs message the way wallets do for personal_sign, with v
// reported as 27/28.
func PersonalSign(key *ecdsa.PrivateKey, message string) (string, error) {
	prefix := []byte("\x19Ethereum Signed Message:\n" + strconv.Itoa(len(message)))
	sig, err := ethcrypto.Sign(ethcrypto.Keccak256(prefix, []byte(message)), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig), nil
}

// Health calls /health and reports a non-200 response as an error.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

// do sends a JSON body (when in is non-nil) and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	resp, err := c.send(ctx, method, path, query, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// send performs the request and turns any non-2xx response into a *RemoteError.
// The caller closes the body of a successful response.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeRemoteError(resp)
	}
	return resp, nil
}

package ipfs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
)

func TestNewClient(t *testing.T) {
	logger := zap.NewNop()

	t.Run("default_config", func(t *testing.T) {
		client, err := NewClient(Config{}, logger)
		if err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}
		if client.apiURL != "http://localhost:9094" {
			t.Errorf("Expected default API URL 'http://localhost:9094', got %s", client.apiURL)
		}
		if client.ipfsAPIURL != "http://localhost:5001" {
			t.Errorf("Expected default IPFS API URL, got %s", client.ipfsAPIURL)
		}
		if client.httpClient.Timeout != 60*time.Second {
			t.Errorf("Expected default timeout 60s, got %v", client.httpClient.Timeout)
		}
	})

	t.Run("custom_config", func(t *testing.T) {
		client, err := NewClient(Config{ClusterAPIURL: "http://custom:9094", Timeout: 30 * time.Second}, logger)
		if err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}
		if client.apiURL != "http://custom:9094" {
			t.Errorf("Expected API URL 'http://custom:9094', got %s", client.apiURL)
		}
		if client.httpClient.Timeout != 30*time.Second {
			t.Errorf("Expected timeout 30s, got %v", client.httpClient.Timeout)
		}
	})
}

func TestClient_Add(t *testing.T) {
	t.Run("success drains ndjson", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/add" || r.Method != "POST" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("Failed to parse multipart form: %v", err)
			}
			file, header, err := r.FormFile("file")
			if err != nil {
				t.Fatalf("missing file part: %v", err)
			}
			data, _ := io.ReadAll(file)
			if string(data) != `{"version":"1.0"}` {
				t.Errorf("unexpected upload body %q", data)
			}
			if header.Filename != "envelope.json" {
				t.Errorf("unexpected filename %q", header.Filename)
			}

			enc := json.NewEncoder(w)
			enc.Encode(AddResponse{Name: "envelope.json", Cid: "QmPartial", Size: 1})
			enc.Encode(AddResponse{Name: "envelope.json", Cid: "QmFinal", Size: 999})
		}))
		defer server.Close()

		client, _ := NewClient(Config{ClusterAPIURL: server.URL}, zap.NewNop())
		resp, err := client.Add(context.Background(), []byte(`{"version":"1.0"}`), "envelope.json")
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if resp.Cid != "QmFinal" {
			t.Errorf("Expected last CID, got %s", resp.Cid)
		}
		if resp.Size != int64(len(`{"version":"1.0"}`)) {
			t.Errorf("Expected original size, got %d", resp.Size)
		}
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		client, _ := NewClient(Config{ClusterAPIURL: server.URL}, zap.NewNop())
		_, err := client.Add(context.Background(), []byte("x"), "x")
		if !apperrors.IsServiceUnavailable(err) {
			t.Errorf("expected service error, got %v", err)
		}
	})
}

func TestClient_Pin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/pins/QmPin") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("replication-min"); got != "3" {
			t.Errorf("replication-min = %q", got)
		}
		if got := r.URL.Query().Get("name"); got != "payload" {
			t.Errorf("name = %q", got)
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client, _ := NewClient(Config{ClusterAPIURL: server.URL}, zap.NewNop())
	resp, err := client.Pin(context.Background(), "QmPin", "payload", 3)
	if err != nil {
		t.Fatalf("Pin: %v", err)
	}
	if resp.Cid != "QmPin" || resp.Name != "payload" {
		t.Errorf("unexpected pin response %+v", resp)
	}
}

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/cat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.URL.Query().Get("arg") {
		case "QmFound":
			w.Write([]byte("payload-bytes"))
		case "QmMissing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	client, _ := NewClient(Config{IPFSAPIURL: server.URL}, zap.NewNop())
	ctx := context.Background()

	data, err := client.Get(ctx, "QmFound", 0)
	if err != nil || string(data) != "payload-bytes" {
		t.Errorf("Get = %q, %v", data, err)
	}

	if _, err := client.Get(ctx, "QmFound", 4); !apperrors.IsValidation(err) {
		t.Errorf("expected size limit error, got %v", err)
	}

	if _, err := client.Get(ctx, "QmMissing", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := client.Get(ctx, "QmOther", 0); !apperrors.IsServiceUnavailable(err) {
		t.Errorf("expected service error, got %v", err)
	}
}

func TestClient_Health(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/id" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"id":"peer"}`))
	}))
	defer server.Close()

	client, _ := NewClient(Config{ClusterAPIURL: server.URL}, zap.NewNop())
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}
	healthy = false
	if err := client.Health(context.Background()); err == nil {
		t.Error("expected unhealthy")
	}
}

package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", NewValidationError("members", "at least two members required", nil), http.StatusBadRequest},
		{"not found", NewNotFoundError("conversation", "c1"), http.StatusNotFound},
		{"unauthorized", NewUnauthorizedError(""), http.StatusUnauthorized},
		{"forbidden", NewForbiddenError("conversation", "send"), http.StatusForbidden},
		{"forbidden sentinel", fmt.Errorf("send: %w", ErrForbidden), http.StatusForbidden},
		{"conflict", NewConflictError("conversation", "id", "c1"), http.StatusConflict},
		{"corrupt", NewCorruptError("profile::a", nil), http.StatusInternalServerError},
		{"decryption", NewDecryptionError(ReasonNoEnvelope, nil), http.StatusUnprocessableEntity},
		{"service", NewServiceError("ipfs", "", 0, nil), http.StatusServiceUnavailable},
		{"wrapped sentinel", fmt.Errorf("load: %w", ErrNotFound), http.StatusNotFound},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestWriteHTTPError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteHTTPError(rec, NewNotFoundError("conversation", "c9"), "trace-1")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}

	var body HTTPError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != CodeNotFound {
		t.Errorf("Expected code %q, got %q", CodeNotFound, body.Code)
	}
	if body.TraceID != "trace-1" {
		t.Errorf("Expected trace id, got %q", body.TraceID)
	}
	if body.Details["id"] != "c9" {
		t.Errorf("Expected id detail, got %v", body.Details)
	}
}

func TestWriteHTTPErrorRealm(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteHTTPError(rec, NewUnauthorizedError("").WithRealm("wavechat"), "")

	if got := rec.Header().Get("WWW-Authenticate"); got != `Bearer realm="wavechat"` {
		t.Errorf("unexpected WWW-Authenticate %q", got)
	}
}

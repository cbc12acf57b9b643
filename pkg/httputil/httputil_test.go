package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		url    string
		want   string
	}{
		{"bearer header", "Bearer abc", "/", "abc"},
		{"lowercase scheme", "bearer  abc ", "/", "abc"},
		{"other scheme", "Basic abc", "/", ""},
		{"query fallback", "", "/ws?token=xyz", "xyz"},
		{"header wins", "Bearer abc", "/ws?token=xyz", "abc"},
		{"none", "", "/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := ExtractToken(r); got != tt.want {
				t.Errorf("ExtractToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeJSONStrict(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"alice"}`, false},
		{"empty", ``, true},
		{"unknown field", `{"name":"a","extra":1}`, true},
		{"trailing data", `{"name":"a"}{"name":"b"}`, true},
		{"too large", `{"name":"` + strings.Repeat("a", 100) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSONStrict(r, 64, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSONStrict() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.IsValidation(err) {
				t.Errorf("expected validation error, got %T", err)
			}
		})
	}
}

func TestReadBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("12345"))
	if data, err := ReadBody(r, 5); err != nil || string(data) != "12345" {
		t.Errorf("ReadBody() = %q, %v", data, err)
	}
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("123456"))
	if _, err := ReadBody(r, 5); !apperrors.IsValidation(err) {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestQueryParamUint(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?cursor=7&limit=-1&big=5000000000", nil)

	if v, err := QueryParamUint(r, "cursor", 64, 0); err != nil || v != 7 {
		t.Errorf("cursor = %d, %v", v, err)
	}
	if v, err := QueryParamUint(r, "missing", 32, 9); err != nil || v != 9 {
		t.Errorf("missing = %d, %v", v, err)
	}
	if _, err := QueryParamUint(r, "limit", 32, 0); !apperrors.IsValidation(err) {
		t.Errorf("negative limit should fail, got %v", err)
	}
	if _, err := QueryParamUint(r, "big", 32, 0); !apperrors.IsValidation(err) {
		t.Errorf("overflowing limit should fail, got %v", err)
	}
	if got := QueryParam(r, "owner", "self"); got != "self" {
		t.Errorf("QueryParam default = %q", got)
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusTeapot, "short and stout")

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "short and stout" {
		t.Errorf("body = %v", body)
	}
}

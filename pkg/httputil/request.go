package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
)

// DecodeJSONStrict decodes at most maxBytes of the request body into v,
// rejecting unknown fields and trailing data. Failures are ValidationErrors.
func DecodeJSONStrict(r *http.Request, maxBytes int64, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError("body", "request body is required", nil)
		}
		return apperrors.NewValidationError("body", fmt.Sprintf("invalid JSON body: %v", err), nil)
	}
	if dec.More() {
		return apperrors.NewValidationError("body", "unexpected data after JSON body", nil)
	}
	return nil
}

// ReadBody reads the entire request body, failing if it exceeds maxBytes.
func ReadBody(r *http.Request, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, apperrors.NewValidationError("body", fmt.Sprintf("body exceeds %d bytes", maxBytes), nil)
	}
	return data, nil
}

// QueryParam returns the value of a query parameter, or defaultValue if not present.
func QueryParam(r *http.Request, key, defaultValue string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return defaultValue
}

// QueryParamUint parses an unsigned query parameter of the given bit size.
// An absent parameter yields defaultValue; a malformed one a ValidationError.
func QueryParamUint(r *http.Request, key string, bitSize int, defaultValue uint64) (uint64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseUint(v, 10, bitSize)
	if err != nil {
		return 0, apperrors.NewValidationError(key, fmt.Sprintf("%s must be an unsigned %d-bit integer", key, bitSize), v)
	}
	return n, nil
}

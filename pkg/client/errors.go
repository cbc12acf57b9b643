package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
)

// RemoteError is an error response from the gateway. It unwraps to the
// sentinel for its code, so the apperrors Is* helpers work across the wire.
type RemoteError struct {
	Status  int               `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	TraceID string            `json:"trace_id,omitempty"`
}

func (e *RemoteError) Error() string {
	if e.TraceID != "" {
		return fmt.Sprintf("gateway %d %s: %s (trace %s)", e.Status, e.Code, e.Message, e.TraceID)
	}
	return fmt.Sprintf("gateway %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case apperrors.CodeValidation:
		return apperrors.ErrInvalidInput
	case apperrors.CodeNotFound:
		return apperrors.ErrNotFound
	case apperrors.CodeUnauthorized:
		return apperrors.ErrUnauthorized
	case apperrors.CodeForbidden:
		return apperrors.ErrForbidden
	case apperrors.CodeConflict:
		return apperrors.ErrConflict
	case apperrors.CodeCorrupt:
		return apperrors.ErrCorrupt
	case apperrors.CodeDecryption:
		return apperrors.ErrUndecryptable
	case apperrors.CodeServiceUnavailable:
		return apperrors.ErrServiceUnavailable
	default:
		return apperrors.ErrInternal
	}
}

func decodeRemoteError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &RemoteError{Status: resp.StatusCode}
	if err := json.Unmarshal(data, e); err != nil || e.Code == "" {
		e.Code = codeForStatus(resp.StatusCode)
		e.Message = string(data)
	}
	return e
}

// codeForStatus covers responses that did not come from WriteHTTPError, such
// as a proxy's 502.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apperrors.CodeValidation
	case http.StatusUnauthorized:
		return apperrors.CodeUnauthorized
	case http.StatusForbidden:
		return apperrors.CodeForbidden
	case http.StatusNotFound:
		return apperrors.CodeNotFound
	case http.StatusConflict:
		return apperrors.CodeConflict
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return apperrors.CodeServiceUnavailable
	default:
		return apperrors.CodeInternal
	}
}

package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

const (
	// CodeNoRows is the PostgREST code for a single-object request that matched nothing.
	CodeNoRows = "PGRST116"
	// CodeInvalidText is Postgres invalid_text_representation, raised when a filter value
	// cannot be cast to the column type (a non-numeric id against a bigint key).
	CodeInvalidText = "22P02"
)

// APIError describes a non-2xx answer from PostgREST or GoTrue.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "supabase: status %d", e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " code %s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

// IsNotFound reports whether err signals a missing row.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeNoRows || apiErr.Status == http.StatusNotFound
}

// IsConflict reports unique or foreign-key violations.
func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusConflict || apiErr.Code == "23505"
}

// IsForeignKeyViolation reports writes that referenced a missing parent row.
func IsForeignKeyViolation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "23503"
}

// IsInvalidText reports a filter value the column type rejected.
func IsInvalidText(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeInvalidText
}

// IsUnavailable reports transport failures and 5xx answers.
func IsUnavailable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsUnauthorized reports rejected credentials or tokens.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden ||
		apiErr.Code == "invalid_grant" || apiErr.Code == "invalid_credentials"
}

type errorPayload struct {
	Code             json.RawMessage `json:"code"`
	Message          string          `json:"message"`
	Details          string          `json:"details"`
	Hint             string          `json:"hint"`
	Error            string          `json:"error"`
	ErrorCode        string          `json:"error_code"`
	ErrorDescription string          `json:"error_description"`
	Msg              string          `json:"msg"`
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{Status: resp.StatusCode}

	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		if len(apiErr.Message) > 256 {
			apiErr.Message = apiErr.Message[:256]
		}
		return apiErr
	}

	apiErr.Code = firstNonEmpty(payload.ErrorCode, rawCode(payload.Code), payload.Error)
	apiErr.Message = firstNonEmpty(payload.Message, payload.ErrorDescription, payload.Msg, payload.Error)
	apiErr.Details = payload.Details
	apiErr.Hint = payload.Hint
	return apiErr
}

// rawCode accepts both string codes (PostgREST) and numeric codes (GoTrue).
func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

package authapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is a non-2xx response from the auth service.
type APIError struct {
	// StatusCode is the HTTP status of the response
	StatusCode int

	// Code is the machine readable error code when the service sent one
	Code string

	// Message is the human readable message extracted from the body
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("auth api: %d: %s", e.StatusCode, e.Message)
}

// errorBody covers the response shapes the service has used over time.
type errorBody struct {
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	ErrorDescription string          `json:"error_description"`
	Error            string          `json:"error"`
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
}

// parseErrorResponse returns nil for 2xx responses and an *APIError otherwise.
// The message is taken from msg, message, error_description or error, in
// that order.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		for _, candidate := range []string{eb.Msg, eb.Message, eb.ErrorDescription, eb.Error} {
			if candidate != "" {
				apiErr.Message = candidate
				break
			}
		}

		switch {
		case eb.ErrorCode != "":
			apiErr.Code = eb.ErrorCode
		case len(eb.Code) > 0 && eb.Code[0] == '"':
			_ = json.Unmarshal(eb.Code, &apiErr.Code)
		case eb.Error != "" && eb.Error != apiErr.Message:
			apiErr.Code = eb.Error
		}
	}

	if apiErr.Message == "" {
		text := strings.TrimSpace(string(body))
		if text == "" || len(text) > 512 {
			text = http.StatusText(resp.StatusCode)
		}
		apiErr.Message = text
	}

	return apiErr
}

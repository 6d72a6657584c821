package colorme

import (
	"encoding/json"
	"fmt"
)

// ErrorDetail is one entry of the API error envelope.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Status int
	Errors []ErrorDetail
	Body   string
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: string(body)}
	var envelope struct {
		Errors []ErrorDetail `json:"errors"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		apiErr.Errors = envelope.Errors
	}
	return apiErr
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("%s (code: %d)", e.Errors[0].Message, e.Errors[0].Code)
	}
	return fmt.Sprintf("API error: %d", e.Status)
}

// ResponseBody returns the raw upstream body.
func (e *APIError) ResponseBody() string {
	return e.Body
}

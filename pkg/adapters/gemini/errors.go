package gemini

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/aretw0/intheflow/pkg/ports"
)

// StatusError is an API failure: a non-2xx response or a failed operation.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: http %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps authentication failures to ports.ErrCredentialRejected. A 404
// is included: the API answers "Requested entity was not found" for keys
// without access to a model.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return ports.ErrCredentialRejected
	}
	return nil
}

// apiError converts SDK errors into StatusError; other errors are prefixed.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	var ae genai.APIError
	if errors.As(err, &ae) {
		return &StatusError{StatusCode: ae.Code, Message: ae.Message}
	}
	var aep *genai.APIError
	if errors.As(err, &aep) && aep != nil {
		return &StatusError{StatusCode: aep.Code, Message: aep.Message}
	}
	return fmt.Errorf("gemini: %w", err)
}

// operationError reads the google.rpc.Status of a finished operation.
func operationError(status map[string]any) error {
	code, _ := status["code"].(float64)
	msg, _ := status["message"].(string)
	return &StatusError{StatusCode: int(code), Message: msg}
}

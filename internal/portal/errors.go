package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// AuthError indicates the portal rejected the credential (401) or the
// role is not allowed to perform the request (403).
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%d): %s", e.Status, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// APIError is a non-success response other than 401/403.
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string

	// Fields holds per-field validation messages from a 422 response.
	Fields map[string][]string
}

func (e *APIError) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return fmt.Sprintf("portal API error (%d) on %s %s: %s", e.Status, e.Method, e.Path, msg)
}

// errorBody is the Laravel error envelope.
type errorBody struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

func serverMessage(body []byte, fallback string) string {
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	return fallback
}

func serverFieldErrors(body []byte) map[string][]string {
	var eb errorBody
	if json.Unmarshal(body, &eb) != nil {
		return nil
	}
	return eb.Errors
}

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultErrorMessage is shown when the backend gives nothing better.
const DefaultErrorMessage = "Something went wrong. Please try again."

var (
	// ErrTokenExpired is returned by JWTTokenSource for a token past its exp.
	ErrTokenExpired = errors.New("access token expired")
	// ErrNotPersisted is returned when a record-scoped call names a pending id.
	ErrNotPersisted = errors.New("record has not been saved yet")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
	// Fields holds field-level messages, first message per field.
	Fields map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.DisplayMessage())
}

// DisplayMessage prefers field errors, then the server message, then
// DefaultErrorMessage.
func (e *APIError) DisplayMessage() string {
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		return strings.Join(parts, "; ")
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}

// errorBody covers the backend's error envelope. Field errors arrive either
// as a string or as a list of strings per field.
type errorBody struct {
	Message string                     `json:"message"`
	Detail  string                     `json:"detail"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

func parseAPIError(method, path string, status int, raw []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, Status: status}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return apiErr
	}
	apiErr.Message = body.Message
	if apiErr.Message == "" {
		apiErr.Message = body.Detail
	}
	for field, rawMsg := range body.Errors {
		var one string
		if json.Unmarshal(rawMsg, &one) == nil && one != "" {
			apiErr.setField(field, one)
			continue
		}
		var many []string
		if json.Unmarshal(rawMsg, &many) == nil && len(many) > 0 {
			apiErr.setField(field, many[0])
		}
	}
	return apiErr
}

func (e *APIError) setField(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx response. Message holds the backend's display message
// when the body carried one.
type Error struct {
	Status  int
	Method  string
	Path    string
	Message string
	Body    []byte
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

func (e *Error) ServerMessage() string { return e.Message }

func IsNotFound(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

func newError(method, path string, status int, body []byte) *Error {
	return &Error{
		Status:  status,
		Method:  method,
		Path:    path,
		Message: messageFromBody(body),
		Body:    body,
	}
}

// messageFromBody accepts {"message": "..."}, {"error": "..."} and
// {"error": {"message": "..."}}.
func messageFromBody(body []byte) string {
	var env struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if m := strings.TrimSpace(env.Message); m != "" {
		return m
	}
	if len(env.Error) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(env.Error, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(env.Error, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}

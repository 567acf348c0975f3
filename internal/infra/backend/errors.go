package backend

import "fmt"

// Error is a failure response from the backend REST API.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend: %d: %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status, feeding the error classifier.
func (e *Error) StatusCode() int {
	return e.Status
}

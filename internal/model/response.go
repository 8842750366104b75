package model

import "time"

// Envelope is the body shape of every JSON response.
type Envelope[T any] struct {
	StatusCode int       `json:"statusCode"`
	Message    string    `json:"message"`
	Data       T         `json:"data,omitempty"`
	Error      *APIError `json:"error,omitempty"`
	Meta       *Meta     `json:"meta,omitempty"`
	Timestamp  string    `json:"timestamp"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ErrorEnvelope builds the body of an error response. The top-level message
// repeats the error message.
func ErrorEnvelope(status int, code string, message string, details string) Envelope[any] {
	return Envelope[any]{
		StatusCode: status,
		Message:    message,
		Error:      &APIError{Code: code, Message: message, Details: details},
		Timestamp:  Timestamp(time.Now()),
	}
}

func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

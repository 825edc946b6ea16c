// Package api centralizes the JSON response envelope so every endpoint
// answers in the same shape: a status classification, a human-readable
// message, and either payload data or per-field validation errors.
package api

import (
	"encoding/json"
	"net/http"
)

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type envelope struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Data    any          `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

func write(w http.ResponseWriter, code int, v envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Success writes a success envelope with optional payload data.
func Success(w http.ResponseWriter, code int, message string, data any) {
	write(w, code, envelope{Status: "success", Message: message, Data: data})
}

// Failure writes a failed envelope with a message only.
func Failure(w http.ResponseWriter, code int, message string) {
	write(w, code, envelope{Status: "failed", Message: message})
}

// ValidationFailure writes a 400 with structured per-field detail.
func ValidationFailure(w http.ResponseWriter, fields []FieldError) {
	write(w, http.StatusBadRequest, envelope{Status: "failed", Message: "invalid request", Errors: fields})
}

// Internal writes a generic 500 without leaking internal detail.
func Internal(w http.ResponseWriter) {
	Failure(w, http.StatusInternalServerError, "internal server error")
}

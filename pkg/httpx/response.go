package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ErrorBody is the envelope every failed request answers with.
type ErrorBody struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// WriteError writes the {success:false, message, code} envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Message: message, Code: code})
}

// WriteRetryError writes the envelope for 429 responses. retryAfter is in
// seconds and is mirrored into the Retry-After header.
func WriteRetryError(w http.ResponseWriter, code, message string, retryAfter int) {
	retryAfter = max(retryAfter, 1)
	w.Header().Set("Retry-After", itoa(retryAfter))
	WriteJSON(w, http.StatusTooManyRequests, ErrorBody{Message: message, Code: code, RetryAfter: retryAfter})
}

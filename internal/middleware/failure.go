package middleware

import (
	"encoding/json"
	"net/http"
)

// failure mirrors the envelope the handlers package writes so rejections
// raised before routing look the same to clients.
type failure struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
	Success    bool     `json:"success"`
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(failure{StatusCode: status, Message: message, Errors: []string{}})
}

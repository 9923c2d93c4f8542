// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides response helpers for the HTTP front end.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Detail string `json:"detail"`
	Stage  string `json:"stage,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorBody. stage may be empty.
func WriteError(w http.ResponseWriter, status int, detail, stage string) error {
	return WriteJSON(w, status, ErrorBody{Detail: detail, Stage: stage})
}

// Attachment sets the headers that make clients save the response body as
// filename.
func Attachment(w http.ResponseWriter, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

package middleware

import (
	"encoding/json"
	"net/http"
)

// reject ends the request with a JSON error body in the same
// {error, kind} envelope the handlers use.
func reject(w http.ResponseWriter, status int, kind, msg string) {
	body, _ := json.Marshal(map[string]string{"error": msg, "kind": kind})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

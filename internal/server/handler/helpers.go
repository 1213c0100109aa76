package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/hiram/internal/domain"
)

// maxBodyBytes caps request bodies. Pricing requests are a few hundred bytes.
const maxBodyBytes = 64 << 10

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error","kind":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "kind": string(domain.KindInternal)})
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindPricing:
		return http.StatusUnprocessableEntity
	case domain.KindDataUnavailable:
		return http.StatusBadGateway
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a single JSON object from the request body into dst.
// Decoding problems come back as validation errors naming the field when the
// decoder knows it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var (
			ve  *domain.ValidationError
			ute *json.UnmarshalTypeError
			mbe *http.MaxBytesError
			se  *json.SyntaxError
		)
		switch {
		case errors.As(err, &ve):
			return ve
		case errors.As(err, &ute) && ute.Field == "":
			return domain.Invalid("", "request body must be a JSON object")
		case errors.As(err, &ute):
			return domain.Invalid(ute.Field, "must be a %s, got %s", ute.Type, ute.Value)
		case errors.As(err, &mbe):
			return domain.Invalid("", "request body larger than %d bytes", mbe.Limit)
		case errors.As(err, &se):
			return domain.Invalid("", "malformed JSON at offset %d", se.Offset)
		case errors.Is(err, io.EOF):
			return domain.Invalid("", "request body is empty")
		default:
			return domain.Invalid("", "malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return domain.Invalid("", "request body must hold a single JSON object")
	}
	return nil
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}

// logFailure records a failed request. Client errors go to debug, the rest
// to warn or error.
func logFailure(r *http.Request, logger *slog.Logger, status int, err error) {
	attrs := []any{
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("kind", string(domain.KindOf(err))),
		slog.String("error", err.Error()),
	}
	switch {
	case status < 500:
		logger.DebugContext(r.Context(), "request rejected", attrs...)
	case status == http.StatusBadGateway:
		logger.WarnContext(r.Context(), "upstream data unavailable", attrs...)
	default:
		logger.ErrorContext(r.Context(), "request failed", attrs...)
	}
}

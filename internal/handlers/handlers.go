// Package handlers implements the HTTP boundaries of the extraction functions.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/documenttextflow/internal/gcp"
	"github.com/Lllllllleong/documenttextflow/internal/models"
	"github.com/Lllllllleong/documenttextflow/internal/services"
)

// maxJSONBody bounds a JSON request carrying a base64-encoded file of MaxFileSize.
const maxJSONBody = models.MaxFileSize*4/3 + 64*1024

// ObjectSource reads an uploaded file from Cloud Storage.
type ObjectSource interface {
	ReadObject(ctx context.Context, uri string, limit int64) ([]byte, string, error)
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

// decodeJSON reads a bounded JSON body into v and reports the status to use on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) (int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, err
		}
		return http.StatusBadRequest, err
	}
	return http.StatusOK, nil
}

// loadPayload returns the file bytes from either a data URI or a gs:// URI.
// The returned status is the one to send when err is not nil.
func loadPayload(ctx context.Context, objects ObjectSource, dataURI, gcsURI string) ([]byte, int, error) {
	if dataURI != "" {
		data, _, err := models.DecodeDataURI(dataURI)
		if err != nil {
			return nil, http.StatusBadRequest, err
		}
		return data, http.StatusOK, nil
	}

	if objects == nil {
		return nil, http.StatusBadRequest, errors.New("gcs sources are not enabled")
	}
	data, _, err := objects.ReadObject(ctx, gcsURI, models.MaxFileSize)
	switch {
	case err == nil:
		return data, http.StatusOK, nil
	case errors.Is(err, gcp.ErrInvalidURI), errors.Is(err, gcp.ErrObjectNotFound), errors.Is(err, gcp.ErrObjectTooLarge):
		return nil, http.StatusBadRequest, err
	default:
		return nil, http.StatusInternalServerError, err
	}
}

// statusFor maps a pipeline error onto an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, services.ErrValidation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writePipelineError sends the message of an input error with 400 and the
// generic fallback for everything else.
func writePipelineError(w http.ResponseWriter, err error, fallback string) {
	var inputErr *services.InputError
	if errors.As(err, &inputErr) {
		writeError(w, http.StatusBadRequest, inputErr.Message)
		return
	}
	writeError(w, statusFor(err), fallback)
}

// requestContext attaches the caller's X-Request-ID to the request context.
func requestContext(r *http.Request) context.Context {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return services.WithRequestID(r.Context(), id)
	}
	return r.Context()
}

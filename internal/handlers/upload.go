package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/documenttextflow/internal/models"
	"github.com/Lllllllleong/documenttextflow/internal/services"
)

const (
	msgUploadFailed = "Failed to process file"
	msgMissingFile  = "No file provided"

	// multipartOverhead is the room left for form boundaries and headers.
	multipartOverhead = 1 << 20
	maxRequestIDLen   = 128
)

// UploadHandler serves the upload function: multipart field "file" -> UploadResponse.
type UploadHandler struct {
	Coordinator *services.UploadCoordinator
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, models.MaxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, services.MsgFileTooLarge)
			return
		}
		slog.Warn("Could not parse multipart upload.", "error", err)
		writeError(w, http.StatusBadRequest, msgMissingFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	requestID := uploadRequestID(r)
	w.Header().Set("X-Request-ID", requestID)
	logCtx := slog.With("requestId", requestID)

	f, header, err := r.FormFile("file")
	if err != nil {
		logCtx.Warn("Upload has no file field.", "error", err)
		writeError(w, http.StatusBadRequest, msgMissingFile)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, models.MaxFileSize+1))
	if err != nil {
		logCtx.Error("Failed to read file", "error", err)
		writeError(w, http.StatusInternalServerError, msgUploadFailed)
		return
	}

	file := models.UploadedFile{
		Name:     header.Filename,
		MIMEType: declaredMIMEType(header.Header.Get("Content-Type"), header.Filename),
		Size:     header.Size,
		Content:  content,
	}

	result, err := h.Coordinator.Submit(requestContext(r), requestID, file)
	if err != nil {
		writePipelineError(w, err, msgUploadFailed)
		return
	}

	writeJSON(w, http.StatusOK, models.UploadResponse{
		RequestID: requestID,
		Text:      result.Text,
		Source:    result.Source,
		PageCount: result.PageCount,
	})
}

// uploadRequestID prefers a caller-chosen ID so progress can be polled while
// the upload is still running.
func uploadRequestID(r *http.Request) string {
	for _, id := range []string{r.Header.Get("X-Request-ID"), r.FormValue("requestId")} {
		id = strings.TrimSpace(id)
		if id != "" && len(id) <= maxRequestIDLen {
			return id
		}
	}
	return services.NewRequestID()
}

// declaredMIMEType returns the part's media type, falling back to the file
// extension when the browser sent none.
func declaredMIMEType(contentType, filename string) string {
	if contentType != "" && contentType != "application/octet-stream" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			return mediaType
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return contentType
}

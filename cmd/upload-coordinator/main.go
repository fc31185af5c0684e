package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/documenttextflow/internal/app"
	"github.com/Lllllllleong/documenttextflow/internal/gcp"
	"github.com/Lllllllleong/documenttextflow/internal/handlers"
)

var (
	uploadHandler   *handlers.UploadHandler
	progressHandler *handlers.ProgressHandler
	once            sync.Once
	initErr         error
)

func init() {
	gcp.SetupLogging()

	// Upload and progress share one coordinator, so they must be served by the same instance.
	functions.HTTP("HandleUpload", withHandlers(func(w http.ResponseWriter, r *http.Request) {
		uploadHandler.ServeHTTP(w, r)
	}))
	functions.HTTP("HandleProgress", withHandlers(func(w http.ResponseWriter, r *http.Request) {
		progressHandler.ServeHTTP(w, r)
	}))
}

// main is required by the Go Functions Framework.
func main() {}

// withHandlers initializes the shared handlers once before delegating to next.
func withHandlers(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			uploadHandler, progressHandler, initErr = app.NewUploadHandlers(context.Background())
		})
		if initErr != nil {
			slog.Error("Critical error during function initialization", "error", initErr)
			http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
			return
		}
		next(w, r)
	}
}

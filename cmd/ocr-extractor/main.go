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
	ocrHandler *handlers.OCRHandler
	once       sync.Once
	initErr    error
)

func init() {
	gcp.SetupLogging()

	// "HandleOCR" is the entry point name configured in GCP.
	functions.HTTP("HandleOCR", handleOCR)
}

// main is required by the Go Functions Framework.
func main() {}

func handleOCR(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		ocrHandler, initErr = app.NewOCRHandler(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	ocrHandler.ServeHTTP(w, r)
}

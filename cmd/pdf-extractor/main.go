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
	pdfHandler *handlers.PDFHandler
	once       sync.Once
	initErr    error
)

func init() {
	// --- Set up structured logging ---
	gcp.SetupLogging()

	// "HandleExtractPDF" is the entry point name configured in GCP.
	functions.HTTP("HandleExtractPDF", handleExtractPDF)
}

// main is required by the Go Functions Framework.
func main() {}

// handleExtractPDF is the HTTP handler for the PDF extraction service.
func handleExtractPDF(w http.ResponseWriter, r *http.Request) {
	// Use sync.Once for one-time initialization of clients.
	once.Do(func() {
		pdfHandler, initErr = app.NewPDFHandler(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	pdfHandler.ServeHTTP(w, r)
}

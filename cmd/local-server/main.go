// Command local-server runs every extraction function in one process for local development.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/documenttextflow/internal/app"
	"github.com/Lllllllleong/documenttextflow/internal/gcp"
)

func main() {
	gcp.SetupLogging()
	ctx := context.Background()

	ocrHandler, err := app.NewOCRHandler(ctx)
	if err != nil {
		fatal("failed to initialize OCR handler", err)
	}
	pdfHandler, err := app.NewPDFHandler(ctx)
	if err != nil {
		fatal("failed to initialize PDF handler", err)
	}
	uploadHandler, progressHandler, err := app.NewUploadHandlers(ctx)
	if err != nil {
		fatal("failed to initialize upload handlers", err)
	}

	functions.HTTP("HandleOCR", ocrHandler.ServeHTTP)
	functions.HTTP("HandleExtractPDF", pdfHandler.ServeHTTP)
	functions.HTTP("HandleUpload", uploadHandler.ServeHTTP)
	functions.HTTP("HandleProgress", progressHandler.ServeHTTP)

	// With FUNCTION_TARGET unset the framework serves every registered function at /<name>.
	port := gcp.GetEnv("PORT", "8080")
	slog.Info("Starting local server.", "port", port)
	if err := funcframework.Start(port); err != nil && err != http.ErrServerClosed {
		fatal("server stopped", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

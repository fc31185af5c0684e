package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Lllllllleong/documenttextflow/internal/models"
	"google.golang.org/api/idtoken"
)

// NewFunctionHTTPClient returns the client used to call other functions. With
// auth enabled, requests carry a Google-signed ID token for audience.
func NewFunctionHTTPClient(ctx context.Context, audience string, auth bool) (*http.Client, error) {
	if !auth {
		return http.DefaultClient, nil
	}
	client, err := idtoken.NewClient(ctx, audience)
	if err != nil {
		return nil, fmt.Errorf("failed to create ID token client for %s: %w", audience, err)
	}
	return client, nil
}

// RemoteOCR calls a deployed OCR function.
type RemoteOCR struct {
	URL    string
	Client *http.Client
}

// ExtractText posts the image to the OCR function and returns its text.
func (r *RemoteOCR) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", invalidInput("Image data is empty.")
	}
	er := models.NewExtractionRequest(models.UploadedFile{Content: data, MIMEType: mimeType})
	req := models.OCRRequest{ImageData: er.DataURI, MIMEType: er.MIMEType}
	var resp models.TextResponse
	if err := postJSON(ctx, r.Client, r.URL, req, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Recognize is ExtractText with the OCR function's placeholder mapped to "".
func (r *RemoteOCR) Recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	text, err := r.ExtractText(ctx, data, mimeType)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == NoTextExtracted {
		return "", nil
	}
	return text, nil
}

// RemotePDF calls a deployed PDF function.
type RemotePDF struct {
	URL    string
	Client *http.Client
}

// Extract posts the PDF to the PDF function. The remote function does not
// report which tier produced the text.
func (r *RemotePDF) Extract(ctx context.Context, data []byte) (*models.ExtractionResult, error) {
	if len(data) == 0 {
		return nil, invalidInput("PDF data is empty.")
	}
	er := models.NewExtractionRequest(models.UploadedFile{Content: data, MIMEType: models.MIMETypePDF})
	req := models.PDFRequest{FileData: er.DataURI}
	var resp models.TextResponse
	if err := postJSON(ctx, r.Client, r.URL, req, &resp); err != nil {
		return nil, err
	}
	return &models.ExtractionResult{Text: resp.Text, Source: models.SourceRemote}, nil
}

func postJSON(ctx context.Context, client *http.Client, url string, in, out any) error {
	if client == nil {
		client = http.DefaultClient
	}
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := RequestIDFrom(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request to %s: %w", ErrService, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var remote models.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &remote) == nil && remote.Error != "" {
			return fmt.Errorf("%w: %s returned status %d: %s", ErrService, url, resp.StatusCode, remote.Error)
		}
		return fmt.Errorf("%w: %s returned status %d", ErrService, url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response from %s: %w", ErrService, url, err)
	}
	return nil
}

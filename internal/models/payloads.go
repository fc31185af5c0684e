package models

// These structs define the JSON payloads exchanged with the HTTP functions.
// Field names match the browser client's wire format.

// OCRRequest is the input for the OCR function. Either ImageData or GCSUri must be set.
type OCRRequest struct {
	ImageData string `json:"imageData"`
	MIMEType  string `json:"mimeType"`
	GCSUri    string `json:"gcsUri,omitempty"`
}

// PDFRequest is the input for the PDF function. Either FileData or GCSUri must be set.
type PDFRequest struct {
	FileData string `json:"fileData"`
	GCSUri   string `json:"gcsUri,omitempty"`
}

// TextResponse is the success output of the OCR and PDF functions.
type TextResponse struct {
	Text string `json:"text"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UploadResponse is the output of the upload function.
type UploadResponse struct {
	RequestID string `json:"requestId"`
	Text      string `json:"text"`
	Source    string `json:"source"`
	PageCount int    `json:"pageCount,omitempty"`
}

// ProgressResponse is the output of the progress function.
type ProgressResponse struct {
	RequestID string `json:"requestId"`
	Percent   int    `json:"percent"`
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
}

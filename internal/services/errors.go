package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks missing, oversized or unsupported input. No external call is made.
	ErrValidation = errors.New("invalid input")
	// ErrConfiguration marks a missing credential for the OCR model. No external call is made.
	ErrConfiguration = errors.New("ocr service is not configured")
	// ErrService marks a failed call to the OCR model or to a remote extraction function.
	ErrService = errors.New("extraction service call failed")

	// errPDFParse marks an unreadable PDF structure. It never leaves this package.
	errPDFParse = errors.New("pdf structure could not be parsed")
)

// User-facing validation messages.
const (
	MsgFileTooLarge    = "File size exceeds 10MB limit. Please choose a smaller file."
	MsgUnsupportedType = "Please upload a valid image (PNG, JPG, JPEG) or PDF file."
	MsgEmptyFile       = "File is empty."
)

// InputError is a validation failure. Message is safe to return to the caller
// and matches ErrValidation under errors.Is.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return ErrValidation.Error() + ": " + e.Message
}

func (e *InputError) Is(target error) bool {
	return target == ErrValidation
}

func invalidInput(format string, args ...any) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// Placeholder texts for successful extractions that found nothing.
const (
	NoTextExtracted = "No text could be extracted from the image."
	NoReadableText  = "No readable text detected even after OCR."
)

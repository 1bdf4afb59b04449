package employees

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound  = errors.New("employee not found")
	ErrConflict  = errors.New("employee already exists")
	ErrUpload    = errors.New("photo upload failed")
	ErrNoChanges = errors.New("no valid fields provided for update")
)

// FieldError is a single field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + " " + e.Reason
}

// ConstraintError is a database constraint violation other than uniqueness.
type ConstraintError struct {
	Constraint string
	Detail     string
}

func (e *ConstraintError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("constraint %s violated: %s", e.Constraint, e.Detail)
	}
	return fmt.Sprintf("constraint %s violated", e.Constraint)
}

type IngestionKind string

const (
	MissingFilename       IngestionKind = "missing_filename"
	DisallowedExtension   IngestionKind = "disallowed_extension"
	FileTooLarge          IngestionKind = "file_too_large"
	MissingRequiredFields IngestionKind = "missing_required_fields"
	MissingFile           IngestionKind = "missing_file"
	InvalidFileFormat     IngestionKind = "invalid_file_format"
	FieldValidationFailed IngestionKind = "field_validation_failed"
	MalformedBody         IngestionKind = "malformed_body"
)

// IngestionError is returned by Ingest for every client-side defect in a
// multipart body. All kinds are client errors.
type IngestionError struct {
	Kind     IngestionKind
	Field    string
	Reason   string
	FileName string
	MIMEType string
	Missing  []string
	Size     int64
	Limit    int64
	Err      error
}

func (e *IngestionError) Unwrap() error { return e.Err }

func (e *IngestionError) Error() string {
	switch e.Kind {
	case MissingFilename:
		return "missing filename for file part " + quoteOrEmpty(e.Field)
	case DisallowedExtension:
		return fmt.Sprintf("file extension of %q is not allowed; use .jpg, .jpeg or .png", e.FileName)
	case FileTooLarge:
		return fmt.Sprintf("file too large: %d bytes exceeds the %d byte limit", e.Size, e.Limit)
	case MissingRequiredFields:
		return "missing required fields: " + strings.Join(e.Missing, ", ")
	case MissingFile:
		return "missing file: a photo is required"
	case InvalidFileFormat:
		return fmt.Sprintf("invalid file format %q: only image/jpeg or image/png are allowed", e.MIMEType)
	case FieldValidationFailed:
		return e.Field + " " + e.Reason
	case MalformedBody:
		return "malformed multipart body: " + e.Reason
	}
	return string(e.Kind)
}

func quoteOrEmpty(value string) string {
	if value == "" {
		return "(unnamed)"
	}
	return fmt.Sprintf("%q", value)
}

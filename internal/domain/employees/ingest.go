package employees

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"
)

const (
	MaxPhotoBytes = 5 * 1024 * 1024
	maxFieldBytes = 64 * 1024
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

var allowedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// PartReader yields multipart parts in body order. *multipart.Reader
// satisfies it.
type PartReader interface {
	NextPart() (*multipart.Part, error)
}

// draftFields maps a multipart field name to the Draft slot it fills.
var draftFields = map[string]func(*Draft) *string{
	FieldFullName:     func(d *Draft) *string { return &d.FullName },
	FieldTagName:      func(d *Draft) *string { return &d.TagName },
	FieldTagLastName:  func(d *Draft) *string { return &d.TagLastName },
	FieldJobFunctions: func(d *Draft) *string { return &d.JobFunctions },
	FieldBirthday:     func(d *Draft) *string { return &d.Birthday },
}

var requiredFields = []string{FieldFullName, FieldTagName, FieldTagLastName}

// Ingest consumes parts sequentially and assembles a validated Draft. The
// first defect stops consumption; the remaining parts are left unread.
func Ingest(ctx context.Context, parts PartReader, now time.Time) (*Draft, error) {
	draft := &Draft{}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		part, err := parts.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, asReadError(err)
		}

		if isFilePart(part) {
			err = ingestFile(draft, part)
		} else {
			err = ingestField(draft, part, now)
		}
		_ = part.Close()
		if err != nil {
			return nil, err
		}
	}

	if missing := missingRequired(draft); len(missing) > 0 {
		return nil, &IngestionError{Kind: MissingRequiredFields, Missing: missing}
	}
	if len(draft.File) == 0 {
		return nil, &IngestionError{Kind: MissingFile}
	}
	if !allowedMIMETypes[draft.MIMEType] {
		return nil, &IngestionError{Kind: InvalidFileFormat, FileName: draft.FileName, MIMEType: draft.MIMEType}
	}

	return draft, nil
}

func ingestFile(draft *Draft, part *multipart.Part) error {
	name, hasName := dispositionFilename(part)
	if !hasName || strings.TrimSpace(name) == "" {
		return &IngestionError{Kind: MissingFilename, Field: part.FormName()}
	}

	name = filepath.Base(name)
	if !allowedExtensions[strings.ToLower(filepath.Ext(name))] {
		return &IngestionError{Kind: DisallowedExtension, FileName: name}
	}

	data, err := io.ReadAll(io.LimitReader(part, MaxPhotoBytes+1))
	if err != nil {
		return asReadError(err)
	}
	if int64(len(data)) > MaxPhotoBytes {
		size := int64(len(data))
		rest, err := io.Copy(io.Discard, part)
		if err == nil {
			size += rest
		}
		return &IngestionError{Kind: FileTooLarge, FileName: name, Size: size, Limit: MaxPhotoBytes}
	}

	draft.FileName = name
	draft.MIMEType = mediaType(part.Header.Get("Content-Type"))
	draft.File = data
	return nil
}

func ingestField(draft *Draft, part *multipart.Part, now time.Time) error {
	slot, ok := draftFields[part.FormName()]
	if !ok {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return asReadError(err)
	}
	if len(raw) > maxFieldBytes {
		return &IngestionError{Kind: FieldValidationFailed, Field: part.FormName(), Reason: "is too long"}
	}

	value, err := ValidateField(part.FormName(), string(raw), now)
	if err != nil {
		var fieldErr *FieldError
		if errors.As(err, &fieldErr) {
			return &IngestionError{Kind: FieldValidationFailed, Field: fieldErr.Field, Reason: fieldErr.Reason}
		}
		return err
	}
	if value == "" {
		return nil
	}
	*slot(draft) = value
	return nil
}

func missingRequired(draft *Draft) []string {
	var missing []string
	for _, name := range requiredFields {
		if *draftFields[name](draft) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// isFilePart reports whether the part is an upload rather than a text field:
// either the disposition carries a filename parameter, or the part declares a
// non-text content type.
func isFilePart(part *multipart.Part) bool {
	if _, ok := dispositionFilename(part); ok {
		return true
	}
	contentType := mediaType(part.Header.Get("Content-Type"))
	return contentType != "" && !strings.HasPrefix(contentType, "text/")
}

// dispositionFilename distinguishes an absent filename parameter from an
// empty one, which multipart.Part.FileName cannot.
func dispositionFilename(part *multipart.Part) (string, bool) {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	name, ok := params["filename"]
	return name, ok
}

func mediaType(value string) string {
	if value == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(value))
	}
	return parsed
}

func malformed(err error) error {
	return &IngestionError{Kind: MalformedBody, Reason: err.Error(), Err: err}
}

// asReadError passes context errors through untouched and reports every
// other read failure as a malformed body.
func asReadError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return malformed(err)
}

package employees

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type Service struct {
	Store         StoreAPI
	Photos        PhotoGateway
	UploadTimeout time.Duration
	Now           func() time.Time
}

func NewService(store StoreAPI, photos PhotoGateway, uploadTimeout time.Duration) *Service {
	return &Service{Store: store, Photos: photos, UploadTimeout: uploadTimeout, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Ingest reads a multipart body into a validated Draft using the service
// clock for date rules.
func (s *Service) Ingest(ctx context.Context, parts PartReader) (*Draft, error) {
	return Ingest(ctx, parts, s.now())
}

// Create uploads the draft's photo and persists the employee. No row is
// written unless the upload returned a URL and the caller is still waiting.
func (s *Service) Create(ctx context.Context, draft *Draft) (*Employee, error) {
	birthday, err := ParseDate(draft.Birthday)
	if err != nil {
		return nil, &FieldError{Field: FieldBirthday, Reason: "must be a valid date in YYYY-MM-DD format"}
	}

	url, err := s.upload(ctx, draft)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.Store.Create(ctx, NewEmployee{
		FullName:     draft.FullName,
		TagName:      draft.TagName,
		TagLastName:  draft.TagLastName,
		JobFunctions: draft.JobFunctions,
		Birthday:     birthday,
		Status:       StatusActive,
		PhotoURL:     url,
	})
}

func (s *Service) upload(ctx context.Context, draft *Draft) (string, error) {
	uploadCtx := ctx
	if s.UploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, s.UploadTimeout)
		defer cancel()
	}

	url, err := s.Photos.Upload(uploadCtx, draft.File, draft.MIMEType)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %w", ErrUpload, err)
	}
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("%w: gateway returned no url", ErrUpload)
	}
	return url, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Employee, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Employee, error) {
	return s.Store.List(ctx)
}

func (s *Service) Search(ctx context.Context, filter SearchFilter) (*SearchResult, error) {
	filter.Name = strings.TrimSpace(filter.Name)
	filter.JobFunction = strings.TrimSpace(filter.JobFunction)
	status, err := ValidateField(FieldStatus, filter.Status, s.now())
	if err != nil {
		return nil, err
	}
	filter.Status = status
	if filter.Limit <= 0 {
		filter.Limit = defaultSearchLimit
	}
	if filter.Limit > maxSearchLimit {
		filter.Limit = maxSearchLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	found, total, err := s.Store.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Employees: found, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// Update validates every provided field and applies them in one statement.
// Required fields and status cannot be cleared; clearing an optional field
// stores NULL.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) (*Employee, error) {
	changes, err := s.patchChanges(patch)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, ErrNoChanges
	}
	return s.Store.Update(ctx, id, changes)
}

func (s *Service) patchChanges(patch Patch) (map[string]any, error) {
	provided := []struct {
		field    string
		value    *string
		required bool
	}{
		{FieldFullName, patch.FullName, true},
		{FieldTagName, patch.TagName, true},
		{FieldTagLastName, patch.TagLastName, true},
		{FieldJobFunctions, patch.JobFunctions, false},
		{FieldBirthday, patch.Birthday, false},
		{FieldEmail, patch.Email, false},
		{FieldPhone, patch.Phone, false},
		{FieldMobile, patch.Mobile, false},
		{FieldStatus, patch.Status, true},
	}

	now := s.now()
	changes := map[string]any{}
	for _, p := range provided {
		if p.value == nil {
			continue
		}
		value, err := ValidateField(p.field, *p.value, now)
		if err != nil {
			return nil, err
		}
		if value == "" {
			if p.required {
				return nil, &FieldError{Field: p.field, Reason: "must not be empty"}
			}
			changes[p.field] = nil
			continue
		}
		if p.field == FieldBirthday {
			birthday, err := ParseDate(value)
			if err != nil {
				return nil, &FieldError{Field: p.field, Reason: err.Error()}
			}
			changes[p.field] = *birthday
			continue
		}
		changes[p.field] = value
	}
	return changes, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.Store.Delete(ctx, id)
}

// Export lists employees for a report, optionally filtered by status.
func (s *Service) Export(ctx context.Context, status string) ([]Employee, error) {
	status, err := ValidateField(FieldStatus, status, s.now())
	if err != nil {
		return nil, err
	}
	return s.Store.ListByStatus(ctx, status)
}

func (s *Service) ListByIDs(ctx context.Context, ids []int64) ([]Employee, error) {
	return s.Store.ListByIDs(ctx, ids)
}

func (s *Service) Ping(ctx context.Context) error {
	if s.Store == nil {
		return errors.New("employee store not configured")
	}
	return s.Store.Ping(ctx)
}

package badges

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"mapleerp/internal/domain/employees"
)

type EmployeeSource interface {
	Get(ctx context.Context, id int64) (*employees.Employee, error)
	ListByIDs(ctx context.Context, ids []int64) ([]employees.Employee, error)
}

type File struct {
	Name    string
	Content []byte
	Count   int
}

type Service struct {
	Employees EmployeeSource
	Renderer  *Renderer
	Now       func() time.Time
}

func NewService(source EmployeeSource, renderer *Renderer) *Service {
	return &Service{Employees: source, Renderer: renderer, Now: time.Now}
}

func (s *Service) Single(ctx context.Context, id int64) (*File, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: employee id must be positive", ErrInvalidRequest)
	}

	emp, err := s.Employees.Get(ctx, id)
	if errors.Is(err, employees.ErrNotFound) {
		return nil, fmt.Errorf("%w: employee %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	content, err := s.Renderer.Single(ctx, *emp)
	if err != nil {
		return nil, err
	}
	return &File{Name: SingleFilename(*emp), Content: content, Count: 1}, nil
}

// Batch renders the badges of every known employee among ids. Unknown ids are
// skipped; the request fails only when none of them exist.
func (s *Service) Batch(ctx context.Context, ids []int64) (*File, error) {
	unique, err := NormalizeIDs(ids)
	if err != nil {
		return nil, err
	}

	found, err := s.Employees.ListByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}

	content, err := s.Renderer.Batch(ctx, found)
	if err != nil {
		return nil, err
	}
	return &File{Name: BatchFilename(s.now()), Content: content, Count: len(found)}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// NormalizeIDs drops repeated ids keeping first occurrences and checks the
// batch bounds on the result.
func NormalizeIDs(ids []int64) ([]int64, error) {
	if _, bad := lo.Find(ids, func(id int64) bool { return id <= 0 }); bad {
		return nil, fmt.Errorf("%w: employee ids must be positive integers", ErrInvalidRequest)
	}
	unique := lo.Uniq(ids)
	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: employeeIds must not be empty", ErrInvalidRequest)
	}
	if len(unique) > MaxBatchSize {
		return nil, fmt.Errorf("%w: at most %d employees per batch", ErrInvalidRequest, MaxBatchSize)
	}
	return unique, nil
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

func SingleFilename(emp employees.Employee) string {
	f := FieldsFor(emp)
	name := asciiSlug(emp.FullName)
	if name == "" {
		name = "funcionario"
	}
	return fmt.Sprintf("cracha_%s_%s.pdf", name, f.ID)
}

func BatchFilename(at time.Time) string {
	return fmt.Sprintf("crachas_%d.pdf", at.UnixMilli())
}

func asciiSlug(value string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), value)
	if err != nil {
		folded = value
	}
	return strings.Trim(nonAlnum.ReplaceAllString(folded, "_"), "_")
}

package employees

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	FieldFullName     = "fullName"
	FieldTagName      = "tagName"
	FieldTagLastName  = "tagLastName"
	FieldJobFunctions = "jobFunctions"
	FieldBirthday     = "birthday"
	FieldStatus       = "status"
	FieldEmail        = "email"
	FieldPhone        = "phone"
	FieldMobile       = "mobile"
)

const dateLayout = "2006-01-02"

var regexDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var validate = validator.New()

type fieldRule struct {
	tag    string
	reason string
	date   bool
}

var fieldRules = map[string]fieldRule{
	FieldFullName:     {tag: "min=2,max=100", reason: "must be between 2 and 100 characters"},
	FieldTagName:      {tag: "min=1,max=50", reason: "must be between 1 and 50 characters"},
	FieldTagLastName:  {tag: "min=1,max=50", reason: "must be between 1 and 50 characters"},
	FieldJobFunctions: {tag: "min=2,max=100", reason: "must be between 2 and 100 characters"},
	FieldBirthday:     {date: true},
	FieldStatus:       {tag: "oneof=Active Inactive OnLeave", reason: "must be one of Active, Inactive, OnLeave"},
	FieldEmail:        {tag: "max=255,email", reason: "must be a valid email address"},
	FieldPhone:        {tag: "max=32", reason: "must be at most 32 characters"},
	FieldMobile:       {tag: "max=32", reason: "must be at most 32 characters"},
}

// ValidateField checks raw against the rule registered for field and returns
// the normalized value. Whitespace-only input means the field is absent: the
// result is "" with no error. Unknown field names pass through trimmed.
func ValidateField(field, raw string, now time.Time) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", nil
	}

	rule, ok := fieldRules[field]
	if !ok {
		return value, nil
	}

	if rule.date {
		if _, err := parseDateNotAfter(value, now); err != nil {
			return "", &FieldError{Field: field, Reason: err.Error()}
		}
		return value, nil
	}

	if err := validate.Var(value, rule.tag); err != nil {
		return "", &FieldError{Field: field, Reason: rule.reason}
	}
	return value, nil
}

// ParseDate parses a validated YYYY-MM-DD value. Empty input yields nil.
func ParseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

type dateError string

func (e dateError) Error() string { return string(e) }

func parseDateNotAfter(value string, now time.Time) (time.Time, error) {
	if !regexDate.MatchString(value) {
		return time.Time{}, dateError("must be a valid date in YYYY-MM-DD format")
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, dateError("must be a valid date in YYYY-MM-DD format")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if parsed.After(today) {
		return time.Time{}, dateError("must not be in the future")
	}
	return parsed, nil
}

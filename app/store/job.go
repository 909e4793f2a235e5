package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// job type values, the only two kinds of postings the board knows about
const (
	TypeIntern   = "intern"
	TypeFullTime = "full-time"
)

// Job represents a single posting, the only entity in the system.
// PostedAt is kept as the original wire string (RFC3339); it is set once
// at creation and edits are expected to carry it over unchanged.
type Job struct {
	ID          string   `json:"id" yaml:"id" validate:"required"`
	Title       string   `json:"title" yaml:"title" validate:"min=3"`
	Company     string   `json:"company" yaml:"company" validate:"min=2"`
	Location    string   `json:"location" yaml:"location" validate:"min=2"`
	Type        string   `json:"type" yaml:"type" validate:"oneof=intern full-time"`
	PostedAt    string   `json:"postedAt" yaml:"postedAt" validate:"required"`
	SalaryFrom  int      `json:"salaryFrom" yaml:"salaryFrom" validate:"gte=0"`
	SalaryTo    int      `json:"salaryTo" yaml:"salaryTo" validate:"gte=0"`
	Currency    string   `json:"currency" yaml:"currency" validate:"len=3"`
	Tags        []string `json:"tags" yaml:"tags"`
	Description string   `json:"description" yaml:"description" validate:"min=5"`
}

// Posted parses the PostedAt timestamp, zero time if it can't be parsed
func (j Job) Posted() time.Time {
	ts, err := time.Parse(time.RFC3339, j.PostedAt)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// FieldViolation describes a single failed schema rule
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports all schema violations for a job record.
// It is returned synchronously from Add/Update before any state change.
type ValidationError struct {
	Violations []FieldViolation
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "invalid job: " + strings.Join(msgs, ", ")
}

var validate = validator.New()

// Validate checks a job against the schema rules. Returns *ValidationError
// listing every field-level violation, or nil when the record is valid.
// Note: salaryFrom <= salaryTo is deliberately not enforced.
func Validate(job Job) error {
	var violations []FieldViolation

	if err := validate.Struct(job); err != nil {
		var vErrs validator.ValidationErrors
		if !errors.As(err, &vErrs) {
			return fmt.Errorf("validate job: %w", err)
		}
		for _, fe := range vErrs {
			violations = append(violations, FieldViolation{
				Field:   fieldName(fe.Field()),
				Message: violationMessage(fe),
			})
		}
	}

	// validator has no rule for "any parseable RFC3339 date", check it directly
	if job.PostedAt != "" {
		if _, err := time.Parse(time.RFC3339, job.PostedAt); err != nil {
			violations = append(violations, FieldViolation{Field: "postedAt", Message: "not a valid RFC3339 timestamp"})
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// fieldName maps struct field names to their wire names
func fieldName(structField string) string {
	switch structField {
	case "ID":
		return "id"
	case "SalaryFrom":
		return "salaryFrom"
	case "SalaryTo":
		return "salaryTo"
	case "PostedAt":
		return "postedAt"
	default:
		return strings.ToLower(structField)
	}
}

// violationMessage renders a human-readable message for a failed rule
func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be %s or greater", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/eclassroom/eclass/internal/platform/errors"
)

// CreateInput describes a new e-class.
type CreateInput struct {
	ProfessorID      string        `validate:"required"`
	Subject          Subject       `validate:"required"`
	Topic            string        `validate:"required,max=200"`
	Start            time.Time     `validate:"required"`
	Duration         time.Duration `validate:"gt=0,lte=12h"`
	Place            Place         `validate:"required,oneof=in-platform external-link in-person"`
	PlaceInformation string        `validate:"required_unless=Place in-platform,max=500"`
	IsRecorded       bool
	// TargetRoleID overrides the cohort audience role.
	TargetRoleID string
}

// UpdateInput edits a planned e-class. Nil fields are left unchanged.
type UpdateInput struct {
	ClassID          string `validate:"required"`
	Actor            Actor
	Topic            *string        `validate:"omitnil,min=1,max=200"`
	Start            *time.Time     `validate:"omitnil"`
	Duration         *time.Duration `validate:"omitnil,gt=0,lte=12h"`
	Place            *Place         `validate:"omitnil,oneof=in-platform external-link in-person"`
	PlaceInformation *string        `validate:"omitnil,max=500"`
	IsRecorded       *bool
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateSubject, Subject{})
	return v
}

func validateSubject(sl validator.StructLevel) {
	subject := sl.Current().Interface().(Subject)
	if strings.TrimSpace(subject.Name) == "" {
		sl.ReportError(subject.Name, "Name", "Name", "required", "")
	}
	if !subject.SchoolYear.Valid() {
		sl.ReportError(subject.SchoolYear, "SchoolYear", "SchoolYear", "oneof", "L1 L2 L3")
	}
	if strings.TrimSpace(subject.TextChannelID) == "" {
		sl.ReportError(subject.TextChannelID, "TextChannelID", "TextChannelID", "required", "")
	}
}

// invalidInput converts validator failures into an input rejection naming
// the offending fields.
func invalidInput(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid input", err)
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	joined := strings.Join(fields, ", ")
	return &apperrors.Error{
		Code:     apperrors.CodeInvalidInput,
		Message:  "invalid input: " + joined,
		Metadata: map[string]string{"Fields": joined},
		Cause:    err,
	}
}

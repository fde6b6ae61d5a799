package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newValidator returns a validator configured for ir records.
func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validateRecord checks struct tags and converts failures into an
// INVALID_INPUT Error naming each failing field.
func (e *Engine) validateRecord(documentID, what string, v any) error {
	err := e.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return wrapError(ErrCodeInvalidInput, documentID, err, fmt.Sprintf("invalid %s", what))
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return wrapError(ErrCodeInvalidInput, documentID, err,
		fmt.Sprintf("invalid %s: %s", what, strings.Join(fields, "; ")))
}

package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their snapshot (json) names.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field string
	Tag   string
	Value string
}

func (e FieldError) String() string {
	if e.Value == "" {
		return fmt.Sprintf("%s failed %q", e.Field, e.Tag)
	}
	return fmt.Sprintf("%s=%s failed %q", e.Field, e.Value, e.Tag)
}

// ValidationError wraps ErrInvalidState with the failing fields.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidState, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrInvalidState.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidState
}

// Validate checks a state tree (ConfigurationState, UIState or a pointer to
// either) against its struct tags. Referential integrity between checkers and
// listors is not part of validation, see DanglingListorRefs.
func Validate(state any) error {
	err := validatorInstance().Struct(state)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.Namespace(),
			Tag:   fe.Tag(),
			Value: fmt.Sprintf("%v", fe.Value()),
		})
	}
	return out
}

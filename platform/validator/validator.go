// Package validator checks request and configuration structs against their
// `validate` tags and reports failures as apperr validation errors.
package validator

import (
	"errors"
	"reflect"
	"strings"

	"salesbot_backend/platform/apperr"

	"github.com/go-playground/validator/v10"
)

const msgValidation = "validation failed"

// Validator is safe for concurrent use; build one and share it.
type Validator struct {
	v *validator.Validate
}

// New creates a validator that names fields by their json tag, so details
// match what the client sent.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return &Validator{v: v}
}

// Check validates s. Field failures become an apperr.KindValidation error
// whose details map each json field to the rule it broke.
func (val *Validator) Check(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Wrap(apperr.KindValidation, msgValidation, err)
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fieldPath(fe)] = fe.Tag()
	}
	return apperr.Validation(msgValidation).WithDetails(details)
}

// fieldPath drops the top-level struct name: "Business.staff[0].name"
// becomes "staff[0].name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		if form, _, _ := strings.Cut(f.Tag.Get("form"), ","); form != "" {
			return form
		}
		return f.Name
	}
	return name
}

// Package inputval validates form structs tagged with `validate:"…"` and
// turns failures into messages fit for re-rendering a form.
//
// Fields may carry a `label:"…"` tag used in messages; the Go field name is
// used otherwise.
package inputval

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return f.Name
		})
	})
	return v
}

// Result holds the messages produced by Validate, one per failing field.
type Result struct {
	Messages []string
}

// OK reports whether validation passed.
func (r Result) OK() bool { return len(r.Messages) == 0 }

// First returns the first message or "".
func (r Result) First() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0]
}

// Validate checks s. A non-nil error is returned only when s is not a struct.
func Validate(s any) (Result, error) {
	err := instance().Struct(s)
	if err == nil {
		return Result{}, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Result{}, err
	}
	res := Result{Messages: make([]string, 0, len(verrs))}
	for _, fe := range verrs {
		res.Messages = append(res.Messages, message(fe))
	}
	return res, nil
}

// IsValidEmail reports whether s is a single bare address.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return instance().Var(s, "email") == nil
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more.", label, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less.", label, fe.Param())
	}
	return label + " is invalid."
}

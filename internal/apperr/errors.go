// Package apperr holds the error kinds shared by the catalog and order packages.
// The HTTP layer maps them onto status codes with errors.As.
package apperr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError is returned for missing or malformed input, before anything is persisted.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func NotFound(resource, id string) error { return &NotFoundError{Resource: resource, ID: id} }

// ConflictError covers unique-key clashes (slug, sku, email).
type ConflictError struct{ Msg string }

func (e *ConflictError) Error() string { return e.Msg }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// pakai nama json supaya pesan error cocok dengan body request
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// CheckStruct runs the `validate` tags on v and reports the first failure as a ValidationError.
func CheckStruct(v any) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Msg: err.Error()}
	}
	fe := verrs[0]
	field := trimRoot(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Msg: "is required"}
	case "email":
		return &ValidationError{Field: field, Msg: "must be a valid email"}
	case "min", "gte":
		return &ValidationError{Field: field, Msg: "must be at least " + fe.Param()}
	case "max", "lte":
		return &ValidationError{Field: field, Msg: "must be at most " + fe.Param()}
	case "oneof":
		return &ValidationError{Field: field, Msg: "must be one of: " + fe.Param()}
	case "uuid":
		return &ValidationError{Field: field, Msg: "must be a valid id"}
	default:
		return &ValidationError{Field: field, Msg: "failed " + fe.Tag() + " check"}
	}
}

// trimRoot drops the struct type name validator puts in front of the namespace.
func trimRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

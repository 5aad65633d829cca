package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error kinds returned by the services. Match them with errors.Is.
var (
	ErrValidation   = errors.New("validation")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not_found")
	ErrStorage      = errors.New("storage")
)

// Error carries an error kind, a message safe to show to clients and,
// for storage failures, the underlying cause (never shown to clients).
type Error struct {
	Kind    error
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func validationError(message string) error {
	return &Error{Kind: ErrValidation, Message: message}
}

func unauthorizedError(message string) error {
	return &Error{Kind: ErrUnauthorized, Message: message}
}

func conflictError(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}

func notFoundError(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

func storageError(op string, err error) error {
	return &Error{Kind: ErrStorage, Message: "internal error", Err: fmt.Errorf("%s: %w", op, err)}
}

// fromValidator turns validator field errors into a validation Error.
func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return validationError(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Error{
		Kind:    ErrValidation,
		Message: "invalid fields: " + strings.Join(names, ", "),
		Fields:  fields,
	}
}

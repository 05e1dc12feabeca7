package core

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error returned by the services wraps exactly one of
// these so callers can branch with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage error")
	ErrUpstream   = errors.New("upstream error")
)

// Field-level causes carried inside a ValidationError.
var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidDate        = errors.New("date must be YYYY-MM-DD")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyName          = errors.New("empty name")
	ErrDuplicateName      = errors.New("name already in use")
	ErrCategoryInUse      = errors.New("category is referenced by transactions or recurring rules")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidType        = errors.New("type must be income or expense")
	ErrInvalidCurrency    = errors.New("currency must be a 3-letter ISO code")
	ErrSignMismatch       = errors.New("amount sign does not match type")
	ErrEmptyID            = errors.New("empty id")
	ErrNotPermutation     = errors.New("order must list every category exactly once")
)

// ValidationError reports bad input detected before any write.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an operation on an id absent from the store.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError reports a failed durable read or write. The operation must be
// treated as not applied.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// UpstreamError reports a failed rate or quote lookup.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Invalid wraps cause as a ValidationError on field.
func Invalid(field string, cause error) error {
	return &ValidationError{Field: field, Err: cause}
}

// NotFound returns a NotFoundError for the given record kind and id.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// Storage wraps err as a StorageError unless it already belongs to the taxonomy.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies an error by how the caller can react to it
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindConflict    ErrorKind = "conflict"
	KindPartial     ErrorKind = "partial_application"
	KindPersistence ErrorKind = "persistence"
)

// Sentinel errors, matched with errors.Is
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNotEditable        = errors.New("order is not editable")
	ErrProductRemoved     = errors.New("product was removed and cannot receive movements")
	ErrStockChanged       = errors.New("stock changed concurrently")
	ErrPartialApplication = errors.New("operation partially applied")
)

// Error is the general structured error of the core
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Fields  map[string]any
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil && e.Message == "" {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrPartialApplication:
		return e.Kind == KindPartial
	}
	return false
}

// ErrorKind returns the classification of the error
func (e *Error) ErrorKind() ErrorKind {
	return e.Kind
}

// Validationf builds a validation error
func Validationf(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found error that wraps ErrNotFound
func NotFoundf(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...), Err: ErrNotFound}
}

// Conflictf builds a conflict error wrapping cause (may be nil)
func Conflictf(op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: fmt.Sprintf(format, args...), Err: cause}
}

// WithField attaches a structured field and returns the error for chaining
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// InsufficientStockError reports a stock check that failed
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q (id %d): requested %d, available %d",
		e.ProductName, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock || target == ErrConflict
}

func (e *InsufficientStockError) ErrorKind() ErrorKind {
	return KindConflict
}

// TransitionError reports a status change that the transition table forbids
type TransitionError struct {
	From    OrderStatus
	To      OrderStatus
	Allowed []OrderStatus
}

func (e *TransitionError) Error() string {
	allowed := "none (terminal status)"
	if len(e.Allowed) > 0 {
		names := make([]string, len(e.Allowed))
		for i, s := range e.Allowed {
			names[i] = string(s)
		}
		allowed = strings.Join(names, ", ")
	}
	return fmt.Sprintf("cannot change status from %s to %s; allowed: %s", e.From, e.To, allowed)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition || target == ErrConflict
}

func (e *TransitionError) ErrorKind() ErrorKind {
	return KindConflict
}

// PartialApplicationError reports a multi-step mutation that failed after an
// earlier step was written. Reverted tells whether the enclosing transaction
// was rolled back successfully; when false the stored state must be reconciled.
type PartialApplicationError struct {
	Op         string
	MovementID int64
	ProductID  int64
	Step       string
	Reverted   bool
	Err        error
}

func (e *PartialApplicationError) Error() string {
	state := "state needs reconciliation"
	if e.Reverted {
		state = "transaction rolled back"
	}
	return fmt.Sprintf("%s: movement %d recorded but %s failed for product %d (%s): %v",
		e.Op, e.MovementID, e.Step, e.ProductID, state, e.Err)
}

func (e *PartialApplicationError) Unwrap() error {
	return e.Err
}

func (e *PartialApplicationError) Is(target error) bool {
	return target == ErrPartialApplication
}

func (e *PartialApplicationError) ErrorKind() ErrorKind {
	return KindPartial
}

// KindOf classifies err. Errors that carry no kind are persistence errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var kinded interface{ ErrorKind() ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.ErrorKind()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrStockChanged), errors.Is(err, ErrConflict):
		return KindConflict
	}
	return KindPersistence
}

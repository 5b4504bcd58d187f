package models

import (
	"errors"
	"fmt"
)

// ErrCategory classifies operation errors by their retry semantics.
type ErrCategory string

const (
	// ErrCategoryValidation: malformed intent, rejected before any OS
	// interaction. The caller must fix the input.
	ErrCategoryValidation ErrCategory = "validation"
	// ErrCategoryBusy: the interface is locked by an in-flight intent.
	// The caller retries after observing the prior intent's outcome.
	ErrCategoryBusy ErrCategory = "busy"
	// ErrCategoryTransient: scan unavailable, association timeout. The
	// caller may retry with backoff.
	ErrCategoryTransient ErrCategory = "transient"
	// ErrCategoryPermanent: permission denied, interface absent. Not
	// retryable without operator action.
	ErrCategoryPermanent ErrCategory = "permanent"
	// ErrCategoryInternal: everything else.
	ErrCategoryInternal ErrCategory = "internal"
)

// Sentinel errors surfaced by the OS adapters and components.
var (
	ErrNotFound          = errors.New("interface not found")
	ErrQueryFailed       = errors.New("interface query failed")
	ErrScanUnavailable   = errors.New("scan unavailable")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrAssociationFailed = errors.New("association failed")
	ErrBusy              = errors.New("interface busy")
)

// OpError annotates an error with the interface key and operation it
// occurred on. The engine never suppresses an underlying error; it wraps it
// here and forwards it verbatim.
type OpError struct {
	Op        string
	Interface string
	Category  ErrCategory
	Err       error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Interface, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// NewOpError wraps err, classifying it from the known sentinels when no
// explicit category is given.
func NewOpError(op, iface string, err error) *OpError {
	return &OpError{Op: op, Interface: iface, Category: Categorize(err), Err: err}
}

// Categorize maps an error to its retry category.
func Categorize(err error) ErrCategory {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Category
	}
	switch {
	case errors.Is(err, ErrBusy):
		return ErrCategoryBusy
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPermissionDenied):
		return ErrCategoryPermanent
	case errors.Is(err, ErrScanUnavailable), errors.Is(err, ErrAssociationFailed):
		return ErrCategoryTransient
	case errors.Is(err, ErrQueryFailed):
		return ErrCategoryPermanent
	default:
		return ErrCategoryInternal
	}
}

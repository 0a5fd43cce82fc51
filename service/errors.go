package service

import (
	"errors"
	"fmt"

	"github.com/kevinaaaquil/transcribe/models"
	"github.com/kevinaaaquil/transcribe/utils"
)

// Sentinel errors callers match with errors.Is to choose a response.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("forbidden")
	ErrStorage     = errors.New("storage failure")
	ErrInvalidBook = utils.ErrInvalidBookID
)

// NotFoundError names what was missing. It unwraps to ErrNotFound.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func notFoundf(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError is returned when a claim hits a page someone else holds.
type ConflictError struct {
	ClaimedBy string
	Status    models.PageStatus
}

func (e *ConflictError) Error() string {
	verb := "claimed"
	if e.Status == models.StatusCompleted {
		verb = "completed"
	}
	if e.ClaimedBy == "" {
		return "page already " + verb
	}
	return fmt.Sprintf("page already %s by %s", verb, e.ClaimedBy)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ForbiddenError is returned when a non-claimant tries to complete or
// release a page.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// StorageError wraps a failed blob store operation. It matches both
// ErrStorage and the underlying cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// errContention is the cause reported when conditional writes keep losing.
var errContention = errors.New("ledger kept changing underneath the write")

package domain

import (
	"fmt"
	"strings"
)

// ValidationError carries every violated constraint of a request, not just
// the first one found.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError means the target exists but its state disallows the
// requested operation (expired offer, already-ordered offer, terminal order).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

type InsufficientInventoryError struct {
	FlightID  int64
	Cabin     CabinClass
	Requested int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("flight %d has fewer than %d available seats in %s", e.FlightID, e.Requested, e.Cabin)
}

// DependencyError wraps a persistence or downstream failure. Not retried
// here; the request fails and the caller decides.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: dependency failure: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

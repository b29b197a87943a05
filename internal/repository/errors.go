// Package repository defines data access for desks, employees and login
// accounts.  Sentinel errors declared here are shared across the
// individual repositories so that higher layers can distinguish failure
// scenarios with errors.Is instead of inspecting driver errors.
package repository

import "errors"

// ErrDeskNotFound is returned when a desk lookup yields no rows.
var ErrDeskNotFound = errors.New("desk not found")

// ErrEmployeeNotFound is returned when an employee lookup yields no rows.
var ErrEmployeeNotFound = errors.New("employee not found")

// ErrDuplicate is returned when an insert violates a unique constraint,
// such as a desk code, employee code or email that already exists.
// Handlers should translate this into an HTTP 409 response.
var ErrDuplicate = errors.New("duplicate record")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state, such as deleting a desk that is
// currently assigned.  Handlers should translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

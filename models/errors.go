package models

import "errors"

// Business errors. Callers distinguish them with errors.Is; operations wrap
// them with the offending status or ID so messages are user-presentable as-is.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotEditable       = errors.New("timesheet is not editable")
	ErrInvalidHours      = errors.New("hours must be between 0 and 24")
	ErrValidation        = errors.New("validation failed")
	ErrNoValidItems      = errors.New("no valid timesheets to batch")
	ErrNoEligibleItems   = errors.New("no eligible timesheets in batch")
)

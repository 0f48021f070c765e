package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrCooldownActive     = errors.New("cooldown is active")
	ErrNoActiveDraft      = errors.New("no card draft in progress")
	ErrNoMedia            = errors.New("post contains no media")
	ErrBadLink            = errors.New("unrecognized post link")
	ErrNumberExhausted    = errors.New("no free card number available")
	ErrNotAdmin           = errors.New("operation requires admin rights")
	ErrInvalidExecContext = errors.New("invalid executor context passed to repository")
)

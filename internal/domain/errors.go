package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrValidation         = errors.New("validation failed")
	ErrEmailExists        = errors.New("user already exists")
	ErrEmailTaken         = errors.New("email is already taken by another user")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrAlreadyClockedIn   = errors.New("you are already clocked in, please clock out first")
	ErrNoActiveSession    = errors.New("no active clock-in session found, please clock in first")
)

// ValidationError names the first offending input field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// AlreadyClockedInError carries the session that blocked a clock-in.
type AlreadyClockedInError struct {
	Entry *TimeEntry
}

func (e *AlreadyClockedInError) Error() string { return ErrAlreadyClockedIn.Error() }

func (e *AlreadyClockedInError) Is(target error) bool { return target == ErrAlreadyClockedIn }

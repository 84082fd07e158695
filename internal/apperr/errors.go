// Package apperr holds sentinel errors shared across notewatch packages.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidSetting = errors.New("invalid setting")
)

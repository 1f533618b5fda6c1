package core

import "errors"

// Common errors.
var (
	ErrNotFound         = errors.New("record not found")
	ErrAlreadyExists    = errors.New("record already exists")
	ErrInvalidTagFormat = errors.New("invalid tag format")
	ErrParse            = errors.New("text cannot be parsed")
	ErrIO               = errors.New("storage i/o failure")
	ErrHierarchyCycle   = errors.New("tag hierarchy would contain a cycle")
	ErrInvalidDate      = errors.New("invalid calendar date")
)

package models

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrUpstream     = errors.New("completion service failed")
	ErrStorage      = errors.New("storage failure")
)

package apperr

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrRefused    = errors.New("refused")
	ErrNotPending = errors.New("entry is not pending")
)

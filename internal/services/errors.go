package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrExpired    = errors.New("document link expired")
	ErrReadOnly   = errors.New("document is read-only")
	ErrInvalidOTP = errors.New("invalid confirmation code")
)

// ConflictError reports a save against a stale document version. The caller
// holds version Got while the store is at Expected; it must refetch, merge
// and retry.
type ConflictError struct {
	Hash     string
	Expected int
	Got      int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("document %s modified concurrently: have version %d, want %d", e.Hash, e.Got, e.Expected)
}

package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched when a citekey is not in the repository.
	ErrNotFound = errors.New("citekey not found")
	// ErrCollision is matched when a citekey is already taken.
	ErrCollision = errors.New("citekey already exists")
	// ErrInvalidCitekey is returned for citekeys with forbidden characters.
	ErrInvalidCitekey = errors.New("invalid citekey")
)

// NotFoundError carries the missing citekey.
type NotFoundError struct {
	Citekey string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("citekey not found: %q", e.Citekey) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CollisionError carries the citekey that is already taken.
type CollisionError struct {
	Citekey string
}

func (e *CollisionError) Error() string { return fmt.Sprintf("citekey already exists: %q", e.Citekey) }

func (e *CollisionError) Unwrap() error { return ErrCollision }

// IsNotFound reports whether err is (or wraps) a missing-citekey condition.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCollision reports whether err is (or wraps) a citekey collision.
func IsCollision(err error) bool { return errors.Is(err, ErrCollision) }

package cli

import (
	"errors"
	"io/fs"

	"github.com/aidanlsb/pubs/internal/app"
	"github.com/aidanlsb/pubs/internal/broker"
	"github.com/aidanlsb/pubs/internal/codec"
	"github.com/aidanlsb/pubs/internal/repository"
	"github.com/aidanlsb/pubs/internal/ui"
)

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	// Repository errors
	ErrRepoNotFound  = "REPO_NOT_FOUND"
	ErrConfigInvalid = "CONFIG_INVALID"

	// Citekey errors
	ErrCitekeyNotFound = "CITEKEY_NOT_FOUND"
	ErrCitekeyExists   = "CITEKEY_EXISTS"
	ErrCitekeyInvalid  = "CITEKEY_INVALID"

	// Data errors
	ErrDecode     = "DECODE_ERROR"
	ErrNotManaged = "NOT_MANAGED"

	// File errors
	ErrFileNotFound = "FILE_NOT_FOUND"
	ErrFileExists   = "FILE_EXISTS"

	// Input errors
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMissingArgument = "MISSING_ARGUMENT"
	ErrNoEditor        = "EDITOR_NOT_CONFIGURED"
	ErrCancelled       = "CANCELLED"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)

// Warning codes for non-fatal issues.
const (
	WarnSkipped       = "SKIPPED"
	WarnCitekeyChange = "CITEKEY_CHANGED"
	WarnNoDocument    = "NO_DOCUMENT"
)

// cmdError carries a stable code and an optional hint alongside the error.
type cmdError struct {
	code       string
	suggestion string
	err        error
}

func (e *cmdError) Error() string { return e.err.Error() }
func (e *cmdError) Unwrap() error { return e.err }

// fail tags err with code. An empty code is derived from the error chain.
func fail(code string, err error, suggestion string) error {
	if err == nil {
		return nil
	}
	if code == "" {
		code = errorCode(err)
	}
	return &cmdError{code: code, suggestion: suggestion, err: err}
}

// inputCode classifies a rejected BibTeX input.
func inputCode(err error) string {
	if errors.Is(err, codec.ErrEncode) {
		return ErrInvalidInput
	}
	return ErrDecode
}

// errorCode maps the domain sentinels to their stable codes.
func errorCode(err error) string {
	var ce *cmdError
	switch {
	case errors.As(err, &ce):
		return ce.code
	case errors.Is(err, app.ErrNoRepository):
		return ErrRepoNotFound
	case errors.Is(err, repository.ErrNotFound):
		return ErrCitekeyNotFound
	case errors.Is(err, repository.ErrCollision):
		return ErrCitekeyExists
	case errors.Is(err, repository.ErrInvalidCitekey):
		return ErrCitekeyInvalid
	case errors.Is(err, codec.ErrDecode):
		return ErrDecode
	case errors.Is(err, codec.ErrEncode):
		return ErrInvalidInput
	case errors.Is(err, broker.ErrNotManaged):
		return ErrNotManaged
	case errors.Is(err, broker.ErrAlreadyExists), errors.Is(err, fs.ErrExist):
		return ErrFileExists
	case errors.Is(err, broker.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ErrFileNotFound
	case errors.Is(err, ui.ErrNoEditor):
		return ErrNoEditor
	default:
		return ErrInternal
	}
}

func suggestionFor(err error) string {
	var ce *cmdError
	if errors.As(err, &ce) && ce.suggestion != "" {
		return ce.suggestion
	}
	switch errorCode(err) {
	case ErrRepoNotFound:
		return "Run 'pubs init' to create a repository"
	case ErrCitekeyNotFound:
		return "Run 'pubs list' to see citekeys"
	case ErrCitekeyExists:
		return "Choose another citekey with -k, or rename the existing paper"
	case ErrNoEditor:
		return "Set editor in the config, or $VISUAL or $EDITOR"
	}
	return ""
}

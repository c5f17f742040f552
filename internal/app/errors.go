package app

import (
	"errors"
	"fmt"

	"agent-switcher/internal/config"
	"agent-switcher/internal/portguard"
)

const (
	ExitSuccess     = 0
	ExitUserError   = 1
	ExitPartial     = 2
	ExitAuthFailure = 3
	ExitIOFailure   = 4
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func WrapExit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// SilentExit carries an exit code with nothing to print, e.g. a status
// probe that reported "not logged in".
func SilentExit(code int) error {
	if code == 0 {
		return nil
	}
	return &ExitError{Code: code}
}

func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var credErr *CredentialError
	if errors.As(err, &credErr) {
		return ExitAuthFailure
	}
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return ExitIOFailure
	}
	var conflictErr *portguard.ConflictError
	if errors.As(err, &conflictErr) {
		return ExitIOFailure
	}
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return ExitUserError
	}
	return ExitUserError
}

// CredentialError reports a missing or unreadable credential artifact.
type CredentialError struct {
	Path string
	Msg  string
	Hint string
	Err  error
}

func (e *CredentialError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Msg, e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *CredentialError) Unwrap() error { return e.Err }

// RemoteError is a failed usage request. Snippet is truncated.
type RemoteError struct {
	Status  int
	Snippet string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("usage request failed: %v", e.Err)
	}
	if e.Snippet == "" {
		return fmt.Sprintf("usage request failed (%d)", e.Status)
	}
	return fmt.Sprintf("usage request failed (%d): %s", e.Status, e.Snippet)
}

func (e *RemoteError) Unwrap() error { return e.Err }

type UnsupportedError struct {
	Op  string
	Why string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s is not supported: %s", e.Op, e.Why)
}

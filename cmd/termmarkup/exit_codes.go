package main

import (
	"errors"

	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type exitCoder interface {
	ExitCode() int
}

type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e exitError) Unwrap() error {
	return e.err
}

func (e exitError) ExitCode() int {
	if e.code == 0 {
		return exitFailure
	}
	return e.code
}

func withExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return exitError{code: code, err: err}
}

// exitCodeForError honours an explicit exit code, then treats configuration
// errors as usage errors and everything else as a runtime failure.
func exitCodeForError(err error) int {
	if err == nil {
		return exitOK
	}
	var coded exitCoder
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeConfigLoad, apperrors.ErrCodeConfigParse, apperrors.ErrCodeConfigInvalid:
		return exitUsage
	}
	return exitFailure
}

package main

import (
	"errors"
	"fmt"
)

const (
	exitOK           = 0
	exitFailure      = 1 // well formed but did not verify
	exitCommandError = 2 // usage, config, IO or decoding problem
)

type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func failure(message string, err error) *ExitError {
	return &ExitError{Code: exitFailure, Message: message, Err: err}
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return exitCommandError
}

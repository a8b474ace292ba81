// Package errors provides sentinel errors and custom error types for histport.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrAborted indicates that a run was cancelled, either by the user or by the failure policy
	ErrAborted = errors.New("export aborted")

	// ErrItemNotFound indicates that a legacy item path does not exist
	ErrItemNotFound = errors.New("item not found")

	// ErrNotProject indicates that an item used as an export root is a file
	ErrNotProject = errors.New("item is not a project")

	// ErrContentMissing indicates that a historical version has no retrievable content
	ErrContentMissing = errors.New("content missing")

	// ErrItemDestroyed indicates that an item was destroyed and its content is gone
	ErrItemDestroyed = errors.New("item destroyed")

	// ErrVerifyMismatch indicates that the exported tree differs from the reference tree
	ErrVerifyMismatch = errors.New("verification mismatch")
)

// ItemNotFoundError represents a lookup of a legacy path that does not exist
type ItemNotFoundError struct {
	Path string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s does not exist", e.Path)
}

// Is returns true if the target error is ErrItemNotFound
func (e *ItemNotFoundError) Is(target error) bool {
	return target == ErrItemNotFound
}

// NewItemNotFoundError creates a new ItemNotFoundError
func NewItemNotFoundError(path string) *ItemNotFoundError {
	return &ItemNotFoundError{Path: path}
}

// ContentError represents a failure to fetch one historical version of a file.
// Content errors are never fatal: the write is skipped and replay continues.
type ContentError struct {
	ItemID  string
	Version int
	Err     error
}

func (e *ContentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("content of %s version %d unavailable: %v", e.ItemID, e.Version, e.Err)
	}
	return fmt.Sprintf("content of %s version %d unavailable", e.ItemID, e.Version)
}

// Is returns true if the target error is ErrContentMissing
func (e *ContentError) Is(target error) bool {
	return target == ErrContentMissing
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// NewContentError creates a new ContentError
func NewContentError(itemID string, version int, err error) *ContentError {
	return &ContentError{ItemID: itemID, Version: version, Err: err}
}

// CommandError represents an error from an external VCS command execution
type CommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s command failed", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(": %s", strings.Join(e.Args, " "))
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", strings.TrimSpace(e.Stderr))
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", strings.TrimSpace(e.Stdout))
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError
func NewCommandError(command string, args []string, stdout, stderr string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}

// VerifyMismatchError reports how many entries differ between the reference and exported trees
type VerifyMismatchError struct {
	Differences int
}

func (e *VerifyMismatchError) Error() string {
	return fmt.Sprintf("verification found %d difference(s)", e.Differences)
}

// Is returns true if the target error is ErrVerifyMismatch
func (e *VerifyMismatchError) Is(target error) bool {
	return target == ErrVerifyMismatch
}

// NewVerifyMismatchError creates a new VerifyMismatchError
func NewVerifyMismatchError(differences int) *VerifyMismatchError {
	return &VerifyMismatchError{Differences: differences}
}

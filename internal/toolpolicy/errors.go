package toolpolicy

import "errors"

var (
	// ErrUnknownGroup is returned when a group id is not in the group table.
	ErrUnknownGroup = errors.New("toolpolicy: unknown tool group")

	// ErrUnknownProfile is returned when a profile name is not recognized.
	ErrUnknownProfile = errors.New("toolpolicy: unknown profile")

	// ErrEmptyToolName is returned when a tool id is blank.
	ErrEmptyToolName = errors.New("toolpolicy: tool name must not be empty")
)

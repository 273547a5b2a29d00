package store

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching.
var (
	ErrConfigShape  = errors.New("store: malformed config")
	ErrInvalidValue = errors.New("store: invalid value")
	ErrUnknownName  = errors.New("store: unknown name")
)

// ConfigShapeError reports a missing or wrong-typed config or config.data.
type ConfigShapeError struct {
	Reason string
}

func (e *ConfigShapeError) Error() string { return "store: " + e.Reason }

// Is matches ErrConfigShape.
func (e *ConfigShapeError) Is(target error) bool { return target == ErrConfigShape }

// Code returns the CLI error code.
func (e *ConfigShapeError) Code() string { return "E200" }

// InvalidValueError reports an attempt to store the NotSet sentinel, either
// as the value itself or nested in an array or object.
type InvalidValueError struct {
	Name string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("store: value for '%s' is not set", e.Name)
}

// Is matches ErrInvalidValue.
func (e *InvalidValueError) Is(target error) bool { return target == ErrInvalidValue }

// Code returns the CLI error code.
func (e *InvalidValueError) Code() string { return "E201" }

// UnknownNameError reports a reference to a slot that was never created.
// Only returned by stores built WithStrictNames.
type UnknownNameError struct {
	Name string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("store: no slot named '%s'", e.Name)
}

// Is matches ErrUnknownName.
func (e *UnknownNameError) Is(target error) bool { return target == ErrUnknownName }

// Code returns the CLI error code.
func (e *UnknownNameError) Code() string { return "E203" }

package model

import "fmt"

// ValidationError reports a bad session configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientUniverseError reports a sample larger than the available stimuli.
type InsufficientUniverseError struct {
	Requested int
	Available int
}

func (e *InsufficientUniverseError) Error() string {
	return fmt.Sprintf("requested %d stimuli but only %d available", e.Requested, e.Available)
}

// InvalidSelectionError reports a toggle of a stimulus outside the final set.
type InvalidSelectionError struct {
	ID StimulusID
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("stimulus %q is not a recall candidate", string(e.ID))
}

// InvalidStateError reports an operation called in the wrong session state.
type InvalidStateError struct {
	Op    string
	State string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}

// ResourceLoadError wraps a failure reading a word list, image directory or image.
type ResourceLoadError struct {
	Resource string
	Err      error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Resource, e.Err)
}

func (e *ResourceLoadError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failure reading or writing the history log.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

package bake

import "errors"

var (
	// ErrCancelled is the abort reason of a pass stopped by Cancel.
	ErrCancelled = errors.New("bake: cancelled")

	// ErrNotReady is returned by Start when the model cannot be rendered yet.
	ErrNotReady = errors.New("bake: model not ready")

	// ErrInvalidSettings is returned when Settings fail validation.
	ErrInvalidSettings = errors.New("bake: invalid settings")

	// ErrInProgress is returned by Start on a baker that is already running.
	ErrInProgress = errors.New("bake: already in progress")
)

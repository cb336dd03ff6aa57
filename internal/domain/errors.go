package domain

import "errors"

var (
	// ErrNotSplittable signals that a cluster has no column worth splitting on.
	ErrNotSplittable = errors.New("cluster is not splittable")
	// ErrInvalidTemplate signals a stored template that cannot be restored.
	ErrInvalidTemplate = errors.New("invalid template")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)

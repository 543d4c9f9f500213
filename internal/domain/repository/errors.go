package repository

import "errors"

var (
	// ErrVideoNotFound is returned when a video cannot be found.
	ErrVideoNotFound = errors.New("video not found")

	// ErrUploaderNotFound is returned when an uploader cannot be found.
	ErrUploaderNotFound = errors.New("uploader not found")
)

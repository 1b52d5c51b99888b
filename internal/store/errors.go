package store

import "errors"

var (
	// ErrProjectNotFound is returned when a project row does not exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrReferenceFileNotFound is returned when a reference file row does not exist.
	ErrReferenceFileNotFound = errors.New("reference file not found")
	// ErrExtractionJobNotFound is returned when an extraction job row does not exist.
	ErrExtractionJobNotFound = errors.New("extraction job not found")
	// ErrVersionNotFound is returned when a version row does not exist.
	ErrVersionNotFound = errors.New("version not found")
	// ErrActiveJobNotFound is returned when a file has no non-terminal job.
	ErrActiveJobNotFound = errors.New("active extraction job not found")
)

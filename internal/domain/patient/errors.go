package patient

import "errors"

var (
	ErrPatientNotFound = errors.New("patient not found")
	// ErrVersionConflict means a conditional scan append carried a stale
	// version. Callers re-read and retry.
	ErrVersionConflict = errors.New("patient scan sequence was modified concurrently")
)

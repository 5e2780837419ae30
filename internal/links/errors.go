package links

import "errors"

// Sentinel causes wrapped inside errx errors. Match them with errors.Is.
var (
	ErrInvalidURL          = errors.New("invalid url")
	ErrInvalidCode         = errors.New("code must be 6-8 characters, letters and digits only")
	ErrReservedCode        = errors.New("code is reserved")
	ErrCodeConflict        = errors.New("code already exists")
	ErrDuplicateCode       = errors.New("duplicate code")
	ErrAllocationExhausted = errors.New("could not allocate an unused code")
	ErrNotFound            = errors.New("link not found")
)

package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound             = errors.New("not found")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrInvalidImportRecord  = errors.New("invalid import record")
	ErrInvalidImportPayload = errors.New("import payload must be a json array")
	ErrInvalidExportFormat  = errors.New("invalid export format")
	ErrInvalidFilter        = errors.New("invalid list filter")
	ErrNothingToCapture     = errors.New("nothing to capture")
	ErrPartialBatch         = errors.New("batch partially completed")
)

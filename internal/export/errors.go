package export

import "errors"

var (
	// ErrPDFDisabled means no renderer is configured.
	ErrPDFDisabled = errors.New("export: pdf rendering is not configured")
	// ErrPDFFailed wraps renderer failures.
	ErrPDFFailed = errors.New("export: pdf rendering failed")
)

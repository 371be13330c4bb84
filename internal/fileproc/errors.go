package fileproc

import "errors"

var (
	// ErrInvalidFormat is returned when a path does not carry the processor's extension.
	ErrInvalidFormat = errors.New("fileproc: invalid format")
	// ErrIO wraps failures reading or writing the underlying file.
	ErrIO = errors.New("fileproc: io error")
	// ErrParse is returned for malformed content or an unsupported root shape.
	ErrParse = errors.New("fileproc: parse error")
	// ErrShapeMismatch is returned when a caller asks Content for the arm it does not hold.
	ErrShapeMismatch = errors.New("fileproc: shape mismatch")
)

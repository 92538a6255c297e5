package topology

import (
	"errors"
	"fmt"
)

// ResultCode identifies why a topology could not be built.
type ResultCode int

const (
	CodeNone ResultCode = iota
	CodeEmptyTopology
	CodeVertexCountMismatch
	CodeInvalidIndex
	CodeInvalidDataHash
)

// Build errors. A BuildError unwraps to one of these.
var (
	ErrEmptyTopology       = errors.New("empty topology")
	ErrVertexCountMismatch = errors.New("vertex count mismatch")
	ErrInvalidIndex        = errors.New("invalid vertex index")
	ErrInvalidDataHash     = errors.New("invalid data hash")
)

// String returns a human-readable code name.
func (c ResultCode) String() string {
	switch c {
	case CodeNone:
		return "None"
	case CodeEmptyTopology:
		return "EmptyTopology"
	case CodeVertexCountMismatch:
		return "VertexCountMismatch"
	case CodeInvalidIndex:
		return "InvalidIndex"
	case CodeInvalidDataHash:
		return "InvalidDataHash"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

func (c ResultCode) sentinel() error {
	switch c {
	case CodeEmptyTopology:
		return ErrEmptyTopology
	case CodeVertexCountMismatch:
		return ErrVertexCountMismatch
	case CodeInvalidIndex:
		return ErrInvalidIndex
	case CodeInvalidDataHash:
		return ErrInvalidDataHash
	default:
		return nil
	}
}

// BuildError reports a topology that cannot produce a runnable asset.
type BuildError struct {
	Code   ResultCode
	Detail string
}

// NewBuildError creates a BuildError with a formatted detail message.
func NewBuildError(code ResultCode, format string, args ...any) *BuildError {
	return &BuildError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

func (e *BuildError) Error() string {
	if e.Detail == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *BuildError) Unwrap() error {
	return e.Code.sentinel()
}

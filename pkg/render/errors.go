package render

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeometry is returned when uploaded buffers are malformed.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrIndexOutOfRange is returned when an index names a vertex that does
	// not exist. It wraps ErrInvalidGeometry.
	ErrIndexOutOfRange = fmt.Errorf("%w: index out of range", ErrInvalidGeometry)

	// ErrInvalidViewport is returned for non-positive viewport dimensions.
	ErrInvalidViewport = errors.New("invalid viewport")

	// ErrResourceExhausted is returned when a viewport is too large to allocate.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrNotInitialized is returned when the pipeline is used before Init
	// or after Teardown.
	ErrNotInitialized = errors.New("pipeline not initialized")

	// ErrDeviceFault is matched by every *FaultError.
	ErrDeviceFault = errors.New("device fault")

	// ErrFaulted is returned by RenderFrame after a fault until Init is called again.
	ErrFaulted = errors.New("pipeline faulted, call Init before rendering")

	// ErrSurfaceSize is returned when a caller-supplied surface does not
	// have exactly width*height pixels.
	ErrSurfaceSize = errors.New("surface size mismatch")
)

// FaultError describes an unrecoverable failure inside a pipeline stage.
// The frame that raised it is abandoned.
type FaultError struct {
	Stage string // Pipeline stage that faulted
	Value any    // Recovered panic value
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("device fault in %s stage: %v", e.Stage, e.Value)
}

// Is reports ErrDeviceFault as a match so callers can use errors.Is.
func (e *FaultError) Is(target error) bool {
	return target == ErrDeviceFault
}

package workbench

import (
	"errors"
	"fmt"
)

var (
	ErrNoOutputDir  = errors.New("no output directory set")
	ErrEmptySetup   = errors.New("nothing to generate: every output document is empty")
	ErrUnknownInput = errors.New("unknown input")

	// ErrReferentialConflict is matched by every ReferentialConflictError.
	ErrReferentialConflict = errors.New("referential conflict")

	// ErrEngineFailure is matched by every EngineFailure.
	ErrEngineFailure = errors.New("engine failure")
)

// ReferentialConflictError reports an output path that would overwrite an input or another output.
type ReferentialConflictError struct {
	Document string
	Output   string
	// Conflict is the input path, or the other document's name when two outputs collide.
	Conflict string
	Reason   string
}

func (e ReferentialConflictError) Error() string {
	return fmt.Sprintf("referential conflict: document %q writes %s, %s %s", e.Document, e.Output, e.Reason, e.Conflict)
}

func (e ReferentialConflictError) Is(target error) bool {
	return target == ErrReferentialConflict
}

// EngineFailure wraps an error raised by the PDF engine. The engine's message is kept verbatim.
type EngineFailure struct {
	Op  string
	Err error
}

func (e *EngineFailure) Error() string {
	return e.Err.Error()
}

func (e *EngineFailure) Unwrap() error { return e.Err }

func (e *EngineFailure) Is(target error) bool {
	return target == ErrEngineFailure
}

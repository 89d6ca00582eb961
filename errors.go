package stagewhisper

import (
	"errors"
	"fmt"
)

// Record lookup errors
var (
	// ErrNotFound indicates the entry, transcription, or line does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrNoSuchIndex indicates no line exists at the requested index.
	ErrNoSuchIndex = fmt.Errorf("%w: no line at index", ErrNotFound)
)

// Edit and codec errors
var (
	// ErrInvalidRange indicates a cue whose end time precedes its start time.
	ErrInvalidRange = errors.New("cue end precedes start")

	// ErrEmptyTranscript indicates the engine output contained no cues.
	ErrEmptyTranscript = errors.New("transcript contains no cues")
)

// Export errors
var (
	// ErrNothingToExport indicates the transcription has no live lines.
	ErrNothingToExport = errors.New("no live lines to export")

	// ErrTooManyCollisions indicates the export name probe limit was reached.
	ErrTooManyCollisions = errors.New("export name collision limit reached")
)

// InvariantError reports a version chain in a state the write paths are
// designed to make impossible, such as two rows sharing the maximum version
// for an index. It is distinct from the sentinel errors above because it
// implies store corruption rather than bad input.
type InvariantError struct {
	TranscriptionID string
	Index           int
	Version         int
	Message         string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("version chain invariant violated for transcription %s index %d (version %d): %s",
		e.TranscriptionID, e.Index, e.Version, e.Message)
}

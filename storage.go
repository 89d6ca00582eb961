package stagewhisper

import "context"

// Store is the persistence capability the edit log requires. It is
// deliberately generic: insert one or many rows, fetch filtered rows, update
// a row by id, and delete matching rows atomically. The store subpackage
// provides the SQLite implementation; tests may substitute their own.
//
// Implementations must provide two atomicity guarantees beyond single-row
// writes: InsertLines persists all rows or none, and RestoreIndex performs
// its multi-row delete plus single-row update in one transaction. Deleting
// an entry cascades to its transcriptions and lines; deleting a
// transcription cascades to its lines.
type Store interface {
	// Entries
	PutEntry(ctx context.Context, e Entry) error
	Entry(ctx context.Context, id string) (Entry, error)
	Entries(ctx context.Context) ([]Entry, error)
	DeleteEntry(ctx context.Context, id string) error

	// Transcriptions
	PutTranscription(ctx context.Context, t Transcription) error
	Transcription(ctx context.Context, id string) (Transcription, error)
	TranscriptionsForEntry(ctx context.Context, entryID string) ([]Transcription, error)
	UpdateTranscription(ctx context.Context, t Transcription) error
	DeleteTranscription(ctx context.Context, id string) error

	// Lines
	InsertLines(ctx context.Context, lines []Line) error
	LinesForTranscription(ctx context.Context, transcriptionID string) ([]Line, error)
	LinesForIndex(ctx context.Context, transcriptionID string, index int) ([]Line, error)
	UpdateLine(ctx context.Context, l Line) error

	// RestoreIndex atomically deletes every row above version 0 for
	// (transcriptionID, index) and clears the deleted flag on version 0.
	RestoreIndex(ctx context.Context, transcriptionID string, index int) error
}

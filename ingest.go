package stagewhisper

import (
	"context"
	"errors"
	"fmt"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/Stage-Whisper/stagewhisper/vtt"
)

// EngineResult is what the external transcription engine hands back for one
// run: the raw cue blob plus out-of-band metadata. The engine itself is
// opaque to this package.
type EngineResult struct {
	Model       string
	Language    string
	Translated  bool
	CompletedAt time.Time
	VTT         string
	Path        string
}

// Ingest turns a freshly produced cue blob into the version-0 line set of a
// transcription. The insert is all-or-nothing: if any row fails to persist,
// none remain. A blob that parses to zero cues fails with ErrEmptyTranscript,
// since silent audio is a failed transcription, not an empty-but-valid one.
func (l *EditLog) Ingest(ctx context.Context, transcriptionID, blob string) ([]Line, error) {
	sc := vtt.NewScanner(blob)

	var lines []Line
	for sc.Scan() {
		cue := sc.Cue()
		if cue.End < cue.Start {
			return nil, fmt.Errorf("%w: cue %d: start=%d end=%d", ErrInvalidRange, len(lines), cue.Start, cue.End)
		}

		id, err := nanoid.New()
		if err != nil {
			return nil, fmt.Errorf("generate line id: %w", err)
		}
		lines = append(lines, Line{
			ID:              id,
			TranscriptionID: transcriptionID,
			Index:           len(lines),
			Version:         0,
			Start:           cue.Start,
			End:             cue.End,
			Text:            cue.Text,
		})
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, vtt.ErrEmptyInput) {
			return nil, ErrEmptyTranscript
		}
		return nil, fmt.Errorf("parse engine output: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyTranscript
	}

	if err := l.store.InsertLines(ctx, lines); err != nil {
		return nil, fmt.Errorf("persist lines: %w", err)
	}

	l.log.Info().
		Str("transcription", transcriptionID).
		Int("lines", len(lines)).
		Msg("transcript ingested")
	return lines, nil
}

// IngestResult records a completed engine run against an entry: it creates
// the transcription, ingests the cue blob, and marks the transcription
// complete. If ingestion fails the transcription is kept with status error
// and the failure message, so a failed run stays visible without ever
// looking complete. The all-or-nothing insert guarantees it has no lines.
func (l *EditLog) IngestResult(ctx context.Context, entryID string, res EngineResult) (Transcription, error) {
	entry, err := l.store.Entry(ctx, entryID)
	if err != nil {
		return Transcription{}, err
	}

	id, err := nanoid.New()
	if err != nil {
		return Transcription{}, fmt.Errorf("generate transcription id: %w", err)
	}

	completedAt := res.CompletedAt
	if completedAt.IsZero() {
		completedAt = l.now()
	}
	tr := Transcription{
		ID:         id,
		EntryID:    entry.ID,
		Model:      res.Model,
		Language:   normalizeLanguage(res.Language),
		Status:     StatusProcessing,
		Translated: res.Translated,
		Path:       res.Path,
	}
	if err := l.store.PutTranscription(ctx, tr); err != nil {
		return Transcription{}, fmt.Errorf("persist transcription: %w", err)
	}

	if _, err := l.Ingest(ctx, tr.ID, res.VTT); err != nil {
		tr.Status = StatusError
		tr.Error = err.Error()
		if uerr := l.store.UpdateTranscription(ctx, tr); uerr != nil {
			l.log.Error().Err(uerr).
				Str("transcription", tr.ID).
				Msg("record ingest failure")
		}
		return Transcription{}, err
	}

	tr.Status = StatusComplete
	tr.Progress = 100
	tr.CompletedAt = completedAt
	if err := l.store.UpdateTranscription(ctx, tr); err != nil {
		return Transcription{}, fmt.Errorf("mark transcription complete: %w", err)
	}

	l.log.Info().
		Str("entry", entry.ID).
		Str("transcription", tr.ID).
		Str("model", tr.Model).
		Msg("engine result recorded")
	return tr, nil
}

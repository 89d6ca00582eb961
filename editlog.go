package stagewhisper

import (
	"context"
	"fmt"
	"sort"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

// DefaultCollisionLimit is how many suffixed export names are probed before
// Export gives up. Policy constant, overridable via WithCollisionLimit.
const DefaultCollisionLimit = 100

// EditLog is the transcript edit log: it maintains the per-index version
// chains of every transcription and exposes the append, reconcile, restore,
// ingest, and export operations built on them. All methods are synchronous;
// atomicity for multi-row writes comes from the underlying Store.
type EditLog struct {
	store          Store
	log            zerolog.Logger
	collisionLimit int
	now            func() time.Time
}

// Option configures an EditLog.
type Option func(*EditLog)

// WithLogger attaches a logger. The default is a no-op logger, keeping the
// library silent unless the caller opts in.
func WithLogger(log zerolog.Logger) Option {
	return func(l *EditLog) { l.log = log }
}

// WithCollisionLimit overrides the export name probe limit.
func WithCollisionLimit(n int) Option {
	return func(l *EditLog) {
		if n > 0 {
			l.collisionLimit = n
		}
	}
}

// NewEditLog creates an edit log backed by the given store.
func NewEditLog(store Store, opts ...Option) *EditLog {
	l := &EditLog{
		store:          store,
		log:            zerolog.Nop(),
		collisionLimit: DefaultCollisionLimit,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateEntry registers a new transcription subject. The audio language is
// normalized to a BCP 47 tag when it parses as one; unknown values are kept
// verbatim.
func (l *EditLog) CreateEntry(ctx context.Context, name, description string, audio AudioReference) (Entry, error) {
	id, err := nanoid.New()
	if err != nil {
		return Entry{}, fmt.Errorf("generate entry id: %w", err)
	}

	audio.Language = normalizeLanguage(audio.Language)
	entry := Entry{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   l.now(),
		Audio:       audio,
	}
	if err := l.store.PutEntry(ctx, entry); err != nil {
		return Entry{}, fmt.Errorf("persist entry: %w", err)
	}

	l.log.Info().Str("entry", entry.ID).Str("name", name).Msg("entry created")
	return entry, nil
}

// Entry returns one entry by id.
func (l *EditLog) Entry(ctx context.Context, id string) (Entry, error) {
	return l.store.Entry(ctx, id)
}

// Entries returns all entries.
func (l *EditLog) Entries(ctx context.Context) ([]Entry, error) {
	return l.store.Entries(ctx)
}

// DeleteEntry removes an entry along with its transcriptions and lines.
func (l *EditLog) DeleteEntry(ctx context.Context, id string) error {
	if err := l.store.DeleteEntry(ctx, id); err != nil {
		return err
	}
	l.log.Info().Str("entry", id).Msg("entry deleted")
	return nil
}

// Transcription returns one transcription by id.
func (l *EditLog) Transcription(ctx context.Context, id string) (Transcription, error) {
	return l.store.Transcription(ctx, id)
}

// TranscriptionsForEntry returns all transcriptions of an entry.
func (l *EditLog) TranscriptionsForEntry(ctx context.Context, entryID string) ([]Transcription, error) {
	return l.store.TranscriptionsForEntry(ctx, entryID)
}

// AppendEdit applies a patch to the line at index by appending a new version
// to its chain. Fields the patch leaves nil carry forward from the current
// maximum version. The stored chain is never rewritten.
//
// Returns ErrNoSuchIndex if the index has no version-0 row and
// ErrInvalidRange if the patched timing is negative or would put end
// before start.
func (l *EditLog) AppendEdit(ctx context.Context, transcriptionID string, index int, patch LinePatch) (Line, error) {
	rows, err := l.store.LinesForIndex(ctx, transcriptionID, index)
	if err != nil {
		return Line{}, fmt.Errorf("fetch version chain: %w", err)
	}
	if len(rows) == 0 {
		return Line{}, ErrNoSuchIndex
	}

	current, err := latestOf(rows, transcriptionID, index)
	if err != nil {
		return Line{}, err
	}

	next := patch.apply(current)
	if next.Start < 0 || next.End < next.Start {
		return Line{}, fmt.Errorf("%w: start=%d end=%d", ErrInvalidRange, next.Start, next.End)
	}

	id, err := nanoid.New()
	if err != nil {
		return Line{}, fmt.Errorf("generate line id: %w", err)
	}
	next.ID = id
	next.Version = current.Version + 1

	if err := l.store.InsertLines(ctx, []Line{next}); err != nil {
		return Line{}, fmt.Errorf("persist edit: %w", err)
	}

	l.log.Debug().
		Str("transcription", transcriptionID).
		Int("index", index).
		Int("version", next.Version).
		Msg("edit appended")
	return next, nil
}

// MarkDeleted soft-deletes the line at index: it appends a version with the
// deleted flag set, leaving text and timing intact so Restore can recover
// them later.
func (l *EditLog) MarkDeleted(ctx context.Context, transcriptionID string, index int) (Line, error) {
	return l.AppendEdit(ctx, transcriptionID, index, DeletePatch(true))
}

// ReconcileLatest computes the live transcript: the maximum version of each
// index, minus indexes whose latest version is deleted, ordered by index.
// This is the only read path the editor and export use. It has no side
// effects.
func (l *EditLog) ReconcileLatest(ctx context.Context, transcriptionID string) ([]Line, error) {
	rows, err := l.store.LinesForTranscription(ctx, transcriptionID)
	if err != nil {
		return nil, fmt.Errorf("fetch lines: %w", err)
	}

	latest := make(map[int]Line)
	for _, row := range rows {
		cur, ok := latest[row.Index]
		if !ok || row.Version > cur.Version {
			latest[row.Index] = row
			continue
		}
		if row.Version == cur.Version {
			return nil, &InvariantError{
				TranscriptionID: transcriptionID,
				Index:           row.Index,
				Version:         row.Version,
				Message:         "two rows share the maximum version",
			}
		}
	}

	live := make([]Line, 0, len(latest))
	for _, row := range latest {
		if !row.Deleted {
			live = append(live, row)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Index < live[j].Index })
	return live, nil
}

// Restore discards every edit to the line at index and reverts it to the
// version-0 row as ingested, clearing its deleted flag. This is an explicit
// "discard all edits" action and is destructive to the edit history. It is
// idempotent: restoring an unedited line is a no-op.
func (l *EditLog) Restore(ctx context.Context, transcriptionID string, index int) (Line, error) {
	rows, err := l.store.LinesForIndex(ctx, transcriptionID, index)
	if err != nil {
		return Line{}, fmt.Errorf("fetch version chain: %w", err)
	}
	if len(rows) == 0 {
		return Line{}, ErrNoSuchIndex
	}

	var original Line
	found := false
	for _, row := range rows {
		if row.Version == 0 {
			if found {
				return Line{}, &InvariantError{
					TranscriptionID: transcriptionID,
					Index:           index,
					Version:         0,
					Message:         "two rows at version 0",
				}
			}
			original = row
			found = true
		}
	}
	if !found {
		return Line{}, &InvariantError{
			TranscriptionID: transcriptionID,
			Index:           index,
			Version:         0,
			Message:         "version chain has no version-0 row",
		}
	}

	if err := l.store.RestoreIndex(ctx, transcriptionID, index); err != nil {
		return Line{}, fmt.Errorf("restore index: %w", err)
	}

	original.Deleted = false
	l.log.Info().
		Str("transcription", transcriptionID).
		Int("index", index).
		Int("discarded", len(rows)-1).
		Msg("line restored to original")
	return original, nil
}

// latestOf selects the maximum-version row of one index's chain, failing on
// a duplicate maximum. Equal versions indicate a bug in a prior write path,
// not a normal runtime condition.
func latestOf(rows []Line, transcriptionID string, index int) (Line, error) {
	current := rows[0]
	for _, row := range rows[1:] {
		if row.Version == current.Version {
			return Line{}, &InvariantError{
				TranscriptionID: transcriptionID,
				Index:           index,
				Version:         row.Version,
				Message:         "two rows share the maximum version",
			}
		}
		if row.Version > current.Version {
			current = row
		}
	}
	return current, nil
}

// normalizeLanguage canonicalizes a language hint to a BCP 47 tag.
// Values that do not parse are passed through so engine hints like "auto"
// survive.
func normalizeLanguage(raw string) string {
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return raw
	}
	return tag.String()
}

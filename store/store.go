// Package store provides SQLite persistence for entries, transcriptions, and
// transcript lines. It implements the stagewhisper.Store interface using the
// pure-Go modernc.org/sqlite driver with WAL and enforced foreign keys, so
// deleting an entry cascades to its transcriptions and their lines.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Stage-Whisper/stagewhisper"
)

const schema = `
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		createdAt REAL NOT NULL,
		audioPath TEXT NOT NULL,
		audioLanguage TEXT NOT NULL DEFAULT '',
		audioType TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS transcriptions (
		id TEXT PRIMARY KEY,
		entryId TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
		model TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'idle',
		progress INTEGER NOT NULL DEFAULT 0,
		translated INTEGER NOT NULL DEFAULT 0,
		completedAt REAL,
		error TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS lines (
		id TEXT PRIMARY KEY,
		transcriptionId TEXT NOT NULL REFERENCES transcriptions(id) ON DELETE CASCADE,
		idx INTEGER NOT NULL,
		version INTEGER NOT NULL,
		startMs INTEGER NOT NULL,
		endMs INTEGER NOT NULL,
		text TEXT NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0,
		UNIQUE(transcriptionId, idx, version)
	);

	CREATE INDEX IF NOT EXISTS idx_lines_transcription ON lines(transcriptionId, idx);
`

// Store is a SQLite-backed stagewhisper.Store.
type Store struct {
	db *sql.DB
}

var _ stagewhisper.Store = (*Store)(nil)

// Open opens (creating if necessary) the database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	return open(dsn, 0)
}

// OpenMemory opens a fresh in-memory database, used by tests.
func OpenMemory() (*Store, error) {
	// A single connection keeps the whole pool on the same in-memory
	// database.
	return open("file::memory:?_pragma=foreign_keys(1)", 1)
}

func open(dsn string, maxConns int) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutEntry inserts an entry.
func (s *Store) PutEntry(ctx context.Context, e stagewhisper.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (id, name, description, createdAt, audioPath, audioLanguage, audioType)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Name, e.Description, unixTime(e.CreatedAt), e.Audio.Path, e.Audio.Language, e.Audio.Type)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// Entry returns one entry by id.
func (s *Store) Entry(ctx context.Context, id string) (stagewhisper.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, createdAt, audioPath, audioLanguage, audioType
		FROM entries
		WHERE id = ?
	`, id)

	var e stagewhisper.Entry
	var createdAt float64
	if err := row.Scan(&e.ID, &e.Name, &e.Description, &createdAt,
		&e.Audio.Path, &e.Audio.Language, &e.Audio.Type); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stagewhisper.Entry{}, stagewhisper.ErrNotFound
		}
		return stagewhisper.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.CreatedAt = timeFromUnix(createdAt)
	return e, nil
}

// Entries returns all entries, newest first.
func (s *Store) Entries(ctx context.Context) ([]stagewhisper.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, createdAt, audioPath, audioLanguage, audioType
		FROM entries
		ORDER BY createdAt DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []stagewhisper.Entry
	for rows.Next() {
		var e stagewhisper.Entry
		var createdAt float64
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &createdAt,
			&e.Audio.Path, &e.Audio.Language, &e.Audio.Type); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.CreatedAt = timeFromUnix(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteEntry removes an entry; its transcriptions and lines cascade.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireAffected(res)
}

// PutTranscription inserts a transcription.
func (s *Store) PutTranscription(ctx context.Context, t stagewhisper.Transcription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcriptions (id, entryId, model, language, status, progress, translated, completedAt, error, path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.EntryID, t.Model, t.Language, string(t.Status), t.Progress,
		boolInt(t.Translated), nullUnixTime(t.CompletedAt), t.Error, t.Path)
	if err != nil {
		return fmt.Errorf("insert transcription: %w", err)
	}
	return nil
}

// Transcription returns one transcription by id.
func (s *Store) Transcription(ctx context.Context, id string) (stagewhisper.Transcription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, entryId, model, language, status, progress, translated, completedAt, error, path
		FROM transcriptions
		WHERE id = ?
	`, id)

	t, err := scanTranscription(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stagewhisper.Transcription{}, stagewhisper.ErrNotFound
		}
		return stagewhisper.Transcription{}, fmt.Errorf("scan transcription: %w", err)
	}
	return t, nil
}

// TranscriptionsForEntry returns all transcriptions of an entry.
func (s *Store) TranscriptionsForEntry(ctx context.Context, entryID string) ([]stagewhisper.Transcription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entryId, model, language, status, progress, translated, completedAt, error, path
		FROM transcriptions
		WHERE entryId = ?
		ORDER BY completedAt ASC
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("query transcriptions: %w", err)
	}
	defer rows.Close()

	var ts []stagewhisper.Transcription
	for rows.Next() {
		t, err := scanTranscription(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan transcription: %w", err)
		}
		ts = append(ts, t)
	}
	return ts, rows.Err()
}

// UpdateTranscription replaces a transcription row by id.
func (s *Store) UpdateTranscription(ctx context.Context, t stagewhisper.Transcription) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transcriptions
		SET model = ?, language = ?, status = ?, progress = ?, translated = ?, completedAt = ?, error = ?, path = ?
		WHERE id = ?
	`, t.Model, t.Language, string(t.Status), t.Progress, boolInt(t.Translated),
		nullUnixTime(t.CompletedAt), t.Error, t.Path, t.ID)
	if err != nil {
		return fmt.Errorf("update transcription: %w", err)
	}
	return requireAffected(res)
}

// DeleteTranscription removes a transcription; its lines cascade.
func (s *Store) DeleteTranscription(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transcriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transcription: %w", err)
	}
	return requireAffected(res)
}

// InsertLines persists all given lines or none.
func (s *Store) InsertLines(ctx context.Context, lines []stagewhisper.Line) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lines (id, transcriptionId, idx, version, startMs, endMs, text, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range lines {
		if _, err := stmt.ExecContext(ctx, l.ID, l.TranscriptionID, l.Index, l.Version,
			l.Start, l.End, l.Text, boolInt(l.Deleted)); err != nil {
			return fmt.Errorf("insert line %d v%d: %w", l.Index, l.Version, err)
		}
	}
	return tx.Commit()
}

// LinesForTranscription returns every stored version of every line of a
// transcription, ordered by index then version.
func (s *Store) LinesForTranscription(ctx context.Context, transcriptionID string) ([]stagewhisper.Line, error) {
	return s.queryLines(ctx, `
		SELECT id, transcriptionId, idx, version, startMs, endMs, text, deleted
		FROM lines
		WHERE transcriptionId = ?
		ORDER BY idx ASC, version ASC
	`, transcriptionID)
}

// LinesForIndex returns one index's version chain, ordered by version.
func (s *Store) LinesForIndex(ctx context.Context, transcriptionID string, index int) ([]stagewhisper.Line, error) {
	return s.queryLines(ctx, `
		SELECT id, transcriptionId, idx, version, startMs, endMs, text, deleted
		FROM lines
		WHERE transcriptionId = ? AND idx = ?
		ORDER BY version ASC
	`, transcriptionID, index)
}

// UpdateLine replaces a line row by id.
func (s *Store) UpdateLine(ctx context.Context, l stagewhisper.Line) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE lines
		SET startMs = ?, endMs = ?, text = ?, deleted = ?
		WHERE id = ?
	`, l.Start, l.End, l.Text, boolInt(l.Deleted), l.ID)
	if err != nil {
		return fmt.Errorf("update line: %w", err)
	}
	return requireAffected(res)
}

// RestoreIndex atomically discards every version above 0 for
// (transcriptionID, index) and clears the deleted flag on version 0. A crash
// mid-restore never leaves a chain without its version-0 row.
func (s *Store) RestoreIndex(ctx context.Context, transcriptionID string, index int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM lines
		WHERE transcriptionId = ? AND idx = ? AND version > 0
	`, transcriptionID, index); err != nil {
		return fmt.Errorf("delete edit versions: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE lines
		SET deleted = 0
		WHERE transcriptionId = ? AND idx = ? AND version = 0
	`, transcriptionID, index)
	if err != nil {
		return fmt.Errorf("reset original line: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) queryLines(ctx context.Context, query string, args ...any) ([]stagewhisper.Line, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()

	var lines []stagewhisper.Line
	for rows.Next() {
		var l stagewhisper.Line
		var deleted int
		if err := rows.Scan(&l.ID, &l.TranscriptionID, &l.Index, &l.Version,
			&l.Start, &l.End, &l.Text, &deleted); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		l.Deleted = deleted != 0
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type scanFunc func(dest ...any) error

func scanTranscription(scan scanFunc) (stagewhisper.Transcription, error) {
	var t stagewhisper.Transcription
	var status string
	var translated int
	var completedAt sql.NullFloat64
	if err := scan(&t.ID, &t.EntryID, &t.Model, &t.Language, &status,
		&t.Progress, &translated, &completedAt, &t.Error, &t.Path); err != nil {
		return stagewhisper.Transcription{}, err
	}
	t.Status = stagewhisper.TranscriptionStatus(status)
	t.Translated = translated != 0
	if completedAt.Valid {
		t.CompletedAt = timeFromUnix(completedAt.Float64)
	}
	return t, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return stagewhisper.ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func nullUnixTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return unixTime(t)
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

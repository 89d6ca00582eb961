package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Stage-Whisper/stagewhisper"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedEntry(t *testing.T, s *Store, id string) stagewhisper.Entry {
	t.Helper()
	e := stagewhisper.Entry{
		ID:        id,
		Name:      "Interview",
		CreatedAt: time.Now(),
		Audio:     stagewhisper.AudioReference{Path: "/audio/a.wav", Language: "en", Type: "audio/wav"},
	}
	if err := s.PutEntry(context.Background(), e); err != nil {
		t.Fatalf("PutEntry: %v", err)
	}
	return e
}

func seedTranscription(t *testing.T, s *Store, id, entryID string) stagewhisper.Transcription {
	t.Helper()
	tr := stagewhisper.Transcription{
		ID:      id,
		EntryID: entryID,
		Model:   "base.en",
		Status:  stagewhisper.StatusComplete,
	}
	if err := s.PutTranscription(context.Background(), tr); err != nil {
		t.Fatalf("PutTranscription: %v", err)
	}
	return tr
}

func TestEntryRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	want := seedEntry(t, s, "e-1")

	got, err := s.Entry(ctx, "e-1")
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if got.Name != want.Name || got.Audio != want.Audio {
		t.Errorf("Entry = %+v, want %+v", got, want)
	}
	if got.CreatedAt.Sub(want.CreatedAt).Abs() > time.Millisecond {
		t.Errorf("CreatedAt = %v, want ~%v", got.CreatedAt, want.CreatedAt)
	}

	if _, err := s.Entry(ctx, "missing"); !errors.Is(err, stagewhisper.ErrNotFound) {
		t.Errorf("missing entry err = %v, want ErrNotFound", err)
	}
}

func TestTranscriptionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedEntry(t, s, "e-1")

	completed := time.Now()
	tr := stagewhisper.Transcription{
		ID:          "t-1",
		EntryID:     "e-1",
		Model:       "large-v3",
		Language:    "de",
		Status:      stagewhisper.StatusComplete,
		Progress:    100,
		Translated:  true,
		CompletedAt: completed,
		Path:        "/work/t-1",
	}
	if err := s.PutTranscription(ctx, tr); err != nil {
		t.Fatalf("PutTranscription: %v", err)
	}

	got, err := s.Transcription(ctx, "t-1")
	if err != nil {
		t.Fatalf("Transcription: %v", err)
	}
	if got.Status != stagewhisper.StatusComplete || !got.Translated || got.Language != "de" {
		t.Errorf("Transcription = %+v", got)
	}
	if got.CompletedAt.Sub(completed).Abs() > time.Millisecond {
		t.Errorf("CompletedAt = %v, want ~%v", got.CompletedAt, completed)
	}

	got.Status = stagewhisper.StatusError
	got.Error = "engine crashed"
	if err := s.UpdateTranscription(ctx, got); err != nil {
		t.Fatalf("UpdateTranscription: %v", err)
	}
	got, err = s.Transcription(ctx, "t-1")
	if err != nil {
		t.Fatalf("Transcription: %v", err)
	}
	if got.Status != stagewhisper.StatusError || got.Error != "engine crashed" {
		t.Errorf("after update = %+v", got)
	}

	if err := s.UpdateTranscription(ctx, stagewhisper.Transcription{ID: "missing"}); !errors.Is(err, stagewhisper.ErrNotFound) {
		t.Errorf("update missing err = %v, want ErrNotFound", err)
	}
}

func TestPendingTranscriptionHasNoCompletedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedEntry(t, s, "e-1")

	if err := s.PutTranscription(ctx, stagewhisper.Transcription{
		ID:      "t-1",
		EntryID: "e-1",
		Model:   "base.en",
		Status:  stagewhisper.StatusProcessing,
	}); err != nil {
		t.Fatalf("PutTranscription: %v", err)
	}

	got, err := s.Transcription(ctx, "t-1")
	if err != nil {
		t.Fatalf("Transcription: %v", err)
	}
	if !got.CompletedAt.IsZero() {
		t.Errorf("CompletedAt = %v, want zero", got.CompletedAt)
	}
}

func TestInsertLines_AllOrNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedEntry(t, s, "e-1")
	seedTranscription(t, s, "t-1", "e-1")

	// The third row violates the (transcription, index, version) uniqueness
	// of the first, so the whole batch must roll back.
	batch := []stagewhisper.Line{
		{ID: "l-1", TranscriptionID: "t-1", Index: 0, Version: 0, Start: 0, End: 1000, Text: "a"},
		{ID: "l-2", TranscriptionID: "t-1", Index: 1, Version: 0, Start: 1000, End: 2000, Text: "b"},
		{ID: "l-3", TranscriptionID: "t-1", Index: 0, Version: 0, Start: 0, End: 1000, Text: "dup"},
	}
	if err := s.InsertLines(ctx, batch); err == nil {
		t.Fatal("InsertLines succeeded, want uniqueness violation")
	}

	lines, err := s.LinesForTranscription(ctx, "t-1")
	if err != nil {
		t.Fatalf("LinesForTranscription: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("%d lines persisted from failed batch, want 0", len(lines))
	}
}

func TestLinesForIndex_OrderedByVersion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedEntry(t, s, "e-1")
	seedTranscription(t, s, "t-1", "e-1")

	batch := []stagewhisper.Line{
		{ID: "l-2", TranscriptionID: "t-1", Index: 0, Version: 2, Start: 0, End: 1000, Text: "v2"},
		{ID: "l-0", TranscriptionID: "t-1", Index: 0, Version: 0, Start: 0, End: 1000, Text: "v0"},
		{ID: "l-1", TranscriptionID: "t-1", Index: 0, Version: 1, Start: 0, End: 1000, Text: "v1"},
		{ID: "other", TranscriptionID: "t-1", Index: 1, Version: 0, Start: 1000, End: 2000, Text: "other"},
	}
	if err := s.InsertLines(ctx, batch); err != nil {
		t.Fatalf("InsertLines: %v", err)
	}

	chain, err := s.LinesForIndex(ctx, "t-1", 0)
	if err != nil {
		t.Fatalf("LinesForIndex: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("chain length = %d, want 3", len(chain))
	}
	for i, row := range chain {
		if row.Version != i {
			t.Errorf("chain[%d].Version = %d, want %d", i, row.Version, i)
		}
	}
}

func TestRestoreIndex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedEntry(t, s, "e-1")
	seedTranscription(t, s, "t-1", "e-1")

	batch := []stagewhisper.Line{
		{ID: "l-0", TranscriptionID: "t-1", Index: 0, Version: 0, Start: 0, End: 1000, Text: "orig", Deleted: true},
		{ID: "l-1", TranscriptionID: "t-1", Index: 0, Version: 1, Start: 0, End: 1000, Text: "edit", Deleted: true},
		{ID: "keep", TranscriptionID: "t-1", Index: 1, Version: 1, Start: 1000, End: 2000, Text: "untouched"},
		{ID: "keep0", TranscriptionID: "t-1", Index: 1, Version: 0, Start: 1000, End: 2000, Text: "untouched v0"},
	}
	if err := s.InsertLines(ctx, batch); err != nil {
		t.Fatalf("InsertLines: %v", err)
	}

	if err := s.RestoreIndex(ctx, "t-1", 0); err != nil {
		t.Fatalf("RestoreIndex: %v", err)
	}

	chain, err := s.LinesForIndex(ctx, "t-1", 0)
	if err != nil {
		t.Fatalf("LinesForIndex: %v", err)
	}
	if len(chain) != 1 {
		t.Fatalf("chain length = %d, want 1", len(chain))
	}
	if chain[0].ID != "l-0" || chain[0].Deleted {
		t.Errorf("restored row = %+v, want l-0 undeleted", chain[0])
	}

	// The neighbouring chain is untouched.
	other, err := s.LinesForIndex(ctx, "t-1", 1)
	if err != nil {
		t.Fatalf("LinesForIndex: %v", err)
	}
	if len(other) != 2 {
		t.Errorf("other chain length = %d, want 2", len(other))
	}

	// No version-0 row means nothing to restore.
	if err := s.RestoreIndex(ctx, "t-1", 42); !errors.Is(err, stagewhisper.ErrNotFound) {
		t.Errorf("RestoreIndex missing err = %v, want ErrNotFound", err)
	}
}

func TestUpdateLine(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedEntry(t, s, "e-1")
	seedTranscription(t, s, "t-1", "e-1")

	if err := s.InsertLines(ctx, []stagewhisper.Line{
		{ID: "l-0", TranscriptionID: "t-1", Index: 0, Version: 0, Start: 0, End: 1000, Text: "before"},
	}); err != nil {
		t.Fatalf("InsertLines: %v", err)
	}

	if err := s.UpdateLine(ctx, stagewhisper.Line{ID: "l-0", Start: 100, End: 1100, Text: "after", Deleted: true}); err != nil {
		t.Fatalf("UpdateLine: %v", err)
	}

	chain, err := s.LinesForIndex(ctx, "t-1", 0)
	if err != nil {
		t.Fatalf("LinesForIndex: %v", err)
	}
	if chain[0].Text != "after" || chain[0].Start != 100 || !chain[0].Deleted {
		t.Errorf("updated line = %+v", chain[0])
	}

	if err := s.UpdateLine(ctx, stagewhisper.Line{ID: "missing"}); !errors.Is(err, stagewhisper.ErrNotFound) {
		t.Errorf("update missing err = %v, want ErrNotFound", err)
	}
}

func TestCascadingDeletes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedEntry(t, s, "e-1")
	seedTranscription(t, s, "t-1", "e-1")
	seedTranscription(t, s, "t-2", "e-1")

	if err := s.InsertLines(ctx, []stagewhisper.Line{
		{ID: "l-1", TranscriptionID: "t-1", Index: 0, Version: 0, Start: 0, End: 1, Text: "a"},
		{ID: "l-2", TranscriptionID: "t-2", Index: 0, Version: 0, Start: 0, End: 1, Text: "b"},
	}); err != nil {
		t.Fatalf("InsertLines: %v", err)
	}

	if err := s.DeleteTranscription(ctx, "t-1"); err != nil {
		t.Fatalf("DeleteTranscription: %v", err)
	}
	lines, err := s.LinesForTranscription(ctx, "t-1")
	if err != nil {
		t.Fatalf("LinesForTranscription: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("t-1 lines remain: %d", len(lines))
	}

	if err := s.DeleteEntry(ctx, "e-1"); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, err := s.Transcription(ctx, "t-2"); !errors.Is(err, stagewhisper.ErrNotFound) {
		t.Errorf("t-2 err = %v, want ErrNotFound", err)
	}
	lines, err = s.LinesForTranscription(ctx, "t-2")
	if err != nil {
		t.Fatalf("LinesForTranscription: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("t-2 lines remain after entry cascade: %d", len(lines))
	}

	if err := s.DeleteEntry(ctx, "e-1"); !errors.Is(err, stagewhisper.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestEntries_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := stagewhisper.Entry{ID: "e-old", Name: "Old", CreatedAt: time.Now().Add(-time.Hour)}
	recent := stagewhisper.Entry{ID: "e-new", Name: "New", CreatedAt: time.Now()}
	if err := s.PutEntry(ctx, old); err != nil {
		t.Fatalf("PutEntry: %v", err)
	}
	if err := s.PutEntry(ctx, recent); err != nil {
		t.Fatalf("PutEntry: %v", err)
	}

	entries, err := s.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "e-new" {
		t.Errorf("entries = %+v, want e-new first", entries)
	}
}

func TestOrphanLinesRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.InsertLines(ctx, []stagewhisper.Line{
		{ID: "l-1", TranscriptionID: "no-such-transcription", Index: 0, Version: 0, Start: 0, End: 1, Text: "x"},
	})
	if err == nil {
		t.Error("InsertLines succeeded for orphan line, want foreign key violation")
	}
}

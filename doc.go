// Package stagewhisper implements the transcript edit log at the heart of the
// Stage Whisper review application: non-destructive line versioning, latest-wins
// reconciliation, restore-to-original, and WebVTT ingestion and export.
//
// The package is organized into subpackages by concern:
//
//   - vtt: WebVTT cue parsing and serialization
//   - store: SQLite persistence for entries, transcriptions, and lines
//   - config: application configuration (YAML file + environment overrides)
//
// # Quick Start
//
//	import (
//	    "github.com/Stage-Whisper/stagewhisper"
//	    "github.com/Stage-Whisper/stagewhisper/store"
//	)
//
//	st, _ := store.Open("stagewhisper.sqlite")
//	defer st.Close()
//
//	log := stagewhisper.NewEditLog(st)
//	entry, _ := log.CreateEntry(ctx, "Interview", "", stagewhisper.AudioReference{
//	    Path:     "interview.wav",
//	    Language: "en",
//	})
//	tr, _ := log.IngestResult(ctx, entry.ID, stagewhisper.EngineResult{
//	    Model: "base.en",
//	    VTT:   blob,
//	})
//	_, _ = log.AppendEdit(ctx, tr.ID, 0, stagewhisper.TextPatch("corrected text"))
//	path, _ := log.Export(ctx, tr.ID, outDir, entry.Name)
//
// Every stored line is immutable: an edit appends a new version of the line
// rather than overwriting it, so the original engine output at version 0 is
// always recoverable via Restore.
//
// See individual package documentation for detailed usage.
package stagewhisper

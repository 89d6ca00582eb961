package stagewhisper

import "time"

// TranscriptionStatus indicates where a transcription is in its lifecycle.
// The edit log only acts on transcriptions once they reach StatusComplete;
// the remaining states are carried for the job queue and UI.
type TranscriptionStatus string

const (
	StatusIdle       TranscriptionStatus = "idle"
	StatusQueued     TranscriptionStatus = "queued"
	StatusPending    TranscriptionStatus = "pending"
	StatusProcessing TranscriptionStatus = "processing"
	StatusStalled    TranscriptionStatus = "stalled"
	StatusError      TranscriptionStatus = "error"
	StatusPaused     TranscriptionStatus = "paused"
	StatusComplete   TranscriptionStatus = "complete"
	StatusCancelled  TranscriptionStatus = "cancelled"
	StatusDeleted    TranscriptionStatus = "deleted"
	StatusUnknown    TranscriptionStatus = "unknown"
)

// Terminal returns true once the status can no longer change.
func (s TranscriptionStatus) Terminal() bool {
	switch s {
	case StatusComplete, StatusError, StatusCancelled, StatusDeleted:
		return true
	}
	return false
}

// AudioReference identifies the audio source behind an entry.
type AudioReference struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Entry is one transcription subject: a single audio source with the
// transcriptions run against it. Deleting an entry cascades to its
// transcriptions and their lines.
type Entry struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	Audio       AudioReference `json:"audio"`
}

// Transcription is one run of the external engine against an entry's audio.
type Transcription struct {
	ID          string              `json:"id"`
	EntryID     string              `json:"entryId"`
	Model       string              `json:"model"`
	Language    string              `json:"language,omitempty"`
	Status      TranscriptionStatus `json:"status"`
	Progress    int                 `json:"progress"`
	Translated  bool                `json:"translated"`
	CompletedAt time.Time           `json:"completedAt,omitempty"`
	Error       string              `json:"error,omitempty"`
	Path        string              `json:"path,omitempty"`
}

// Line is one cue of a transcription at one point in its edit history.
// Rows sharing (TranscriptionID, Index) form a version chain: version 0 is
// the engine output and is never rewritten; each edit appends the next
// version. Start and End are milliseconds from the beginning of the audio.
type Line struct {
	ID              string `json:"id"`
	TranscriptionID string `json:"transcriptionId"`
	Index           int    `json:"index"`
	Version         int    `json:"version"`
	Start           int64  `json:"start"`
	End             int64  `json:"end"`
	Text            string `json:"text"`
	Deleted         bool   `json:"deleted"`
}

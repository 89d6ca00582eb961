package stagewhisper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Stage-Whisper/stagewhisper/vtt"
)

// ExportExtension is the file extension of exported transcripts.
const ExportExtension = ".vtt"

// Export renders the live transcript of a transcription to
// dir/baseName/baseName.vtt. Existing files are never overwritten: when the
// baseName directory already exists, "baseName (1)", "baseName (2)", ... are
// probed in order and the first free name is used, up to the configured
// collision limit. The blob is serialized fully in memory before anything
// touches the disk, so a failed export leaves no partial file.
//
// Returns the path of the written file.
func (l *EditLog) Export(ctx context.Context, transcriptionID, dir, baseName string) (string, error) {
	lines, err := l.ReconcileLatest(ctx, transcriptionID)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", ErrNothingToExport
	}

	cues := make([]vtt.Cue, len(lines))
	for i, line := range lines {
		cues[i] = vtt.Cue{Start: line.Start, End: line.End, Text: line.Text}
	}
	blob := vtt.Serialize(cues)

	target, err := l.resolveExportDir(dir, baseName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(target, filepath.Base(target)+ExportExtension)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if _, err := f.WriteString(blob); err != nil {
		f.Close()
		return "", fmt.Errorf("write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}

	l.log.Info().
		Str("transcription", transcriptionID).
		Str("path", path).
		Int("cues", len(cues)).
		Msg("transcript exported")
	return path, nil
}

// resolveExportDir picks the first non-existing directory among
// dir/baseName, dir/baseName (1), dir/baseName (2), ...
func (l *EditLog) resolveExportDir(dir, baseName string) (string, error) {
	for n := 0; n <= l.collisionLimit; n++ {
		name := baseName
		if n > 0 {
			name = fmt.Sprintf("%s (%d)", baseName, n)
		}
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err != nil {
			if os.IsNotExist(err) {
				return candidate, nil
			}
			return "", fmt.Errorf("probe export directory: %w", err)
		}
	}
	return "", fmt.Errorf("%w: probed %d names under %s", ErrTooManyCollisions, l.collisionLimit, dir)
}

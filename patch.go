package stagewhisper

// LinePatch describes an edit to a line. Each field is a pointer: nil leaves
// the current value unchanged, non-nil sets it, including to the zero value.
// There is no separate "clear to null" state; line fields are non-nullable,
// so setting the zero value is how a field is cleared explicitly.
type LinePatch struct {
	Text    *string
	Start   *int64
	End     *int64
	Deleted *bool
}

// TextPatch returns a patch that replaces only the line text.
func TextPatch(text string) LinePatch {
	return LinePatch{Text: &text}
}

// TimingPatch returns a patch that replaces only the start and end times.
func TimingPatch(start, end int64) LinePatch {
	return LinePatch{Start: &start, End: &end}
}

// DeletePatch returns a patch that sets only the deleted flag.
func DeletePatch(deleted bool) LinePatch {
	return LinePatch{Deleted: &deleted}
}

// apply overlays the patch onto a copy of base. Identity fields (ID,
// TranscriptionID, Index, Version) carry over untouched; the caller assigns
// the new id and version.
func (p LinePatch) apply(base Line) Line {
	next := base
	if p.Text != nil {
		next.Text = *p.Text
	}
	if p.Start != nil {
		next.Start = *p.Start
	}
	if p.End != nil {
		next.End = *p.End
	}
	if p.Deleted != nil {
		next.Deleted = *p.Deleted
	}
	return next
}

// Package vtt parses and serializes the WebVTT subset produced by the
// transcription engine: a WEBVTT header followed by blank-line-separated
// cues, each a "HH:MM:SS.mmm --> HH:MM:SS.mmm" timing line and one or more
// text lines. Timings are handled at millisecond granularity, and
// Parse(Serialize(cues)) reproduces the input cues exactly.
package vtt

import (
	"errors"
	"fmt"
	"strings"
)

// Header is the token every blob must start with.
const Header = "WEBVTT"

// Parse errors
var (
	// ErrMalformedHeader indicates the blob does not start with WEBVTT.
	ErrMalformedHeader = errors.New("vtt: missing WEBVTT header")

	// ErrMalformedCue indicates a cue block without a valid timing line.
	ErrMalformedCue = errors.New("vtt: malformed cue")

	// ErrEmptyInput indicates a well-formed header with zero cues.
	ErrEmptyInput = errors.New("vtt: no cues in input")
)

// Cue is one timed caption unit. Start and End are milliseconds; Text may
// contain embedded newlines but never a blank line, since blank lines
// separate cues on the wire.
type Cue struct {
	Start int64
	End   int64
	Text  string
}

// Parse decodes a blob into its cue sequence. It returns ErrMalformedHeader,
// ErrMalformedCue (with line context), or ErrEmptyInput as described on the
// Scanner.
func Parse(blob string) ([]Cue, error) {
	sc := NewScanner(blob)
	var cues []Cue
	for sc.Scan() {
		cues = append(cues, sc.Cue())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cues, nil
}

// Serialize renders cues back to the interchange format, in the order given.
// It is the inverse of Parse for any sequence Parse produced.
func Serialize(cues []Cue) string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n")
	for _, cue := range cues {
		b.WriteString("\n")
		b.WriteString(FormatTimestamp(cue.Start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(cue.End))
		b.WriteString("\n")
		b.WriteString(cue.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// FormatTimestamp renders milliseconds as HH:MM:SS.mmm. Hours are
// zero-padded to two digits and grow beyond that without truncation.
func FormatTimestamp(ms int64) string {
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}

// ParseTimestamp converts HH:MM:SS.mmm (or MM:SS.mmm) to milliseconds.
func ParseTimestamp(raw string) (int64, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad timestamp %q", raw)
	}

	var h, m int64
	var err error
	if len(parts) == 3 {
		if h, err = parseUint(parts[0]); err != nil {
			return 0, fmt.Errorf("bad hours in %q", raw)
		}
		parts = parts[1:]
	}
	if m, err = parseUint(parts[0]); err != nil || m > 59 {
		return 0, fmt.Errorf("bad minutes in %q", raw)
	}

	sec, frac, ok := strings.Cut(parts[1], ".")
	if !ok || len(frac) != 3 {
		return 0, fmt.Errorf("bad seconds in %q", raw)
	}
	s, err := parseUint(sec)
	if err != nil || s > 59 {
		return 0, fmt.Errorf("bad seconds in %q", raw)
	}
	ms, err := parseUint(frac)
	if err != nil {
		return 0, fmt.Errorf("bad milliseconds in %q", raw)
	}

	return h*3600000 + m*60000 + s*1000 + ms, nil
}

// parseUint parses a non-negative decimal without sign or whitespace
// tolerance, which strconv.ParseInt would otherwise allow through. Twelve
// digits keep the largest hours field well inside int64 milliseconds.
func parseUint(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("empty number")
	}
	if len(s) > 12 {
		return 0, fmt.Errorf("number too long %q", s)
	}
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("bad digit %q", r)
		}
		n = n*10 + int64(r-'0')
	}
	return n, nil
}

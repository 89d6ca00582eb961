package vtt

import (
	"fmt"
	"strings"
)

// Scanner walks a blob cue by cue. It is single-pass and non-restartable:
// once Scan returns false the scanner is exhausted. Callers that want the
// whole sequence at once should use Parse.
//
//	sc := vtt.NewScanner(blob)
//	for sc.Scan() {
//	    cue := sc.Cue()
//	    ...
//	}
//	if err := sc.Err(); err != nil {
//	    ...
//	}
type Scanner struct {
	lines   []string
	pos     int
	cue     Cue
	count   int
	started bool
	done    bool
	err     error
}

// NewScanner creates a scanner over a blob.
func NewScanner(blob string) *Scanner {
	blob = strings.TrimPrefix(blob, "\uFEFF")
	return &Scanner{lines: strings.Split(strings.ReplaceAll(blob, "\r\n", "\n"), "\n")}
}

// Scan advances to the next cue. It returns false at the end of the blob or
// on the first error; Err distinguishes the two.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}
	if !s.started {
		s.started = true
		if !s.scanHeader() {
			return false
		}
	}

	block, first := s.nextBlock()
	if block == nil {
		s.done = true
		if s.count == 0 {
			s.err = ErrEmptyInput
		}
		return false
	}

	cue, err := parseBlock(block, first)
	if err != nil {
		s.done = true
		s.err = err
		return false
	}

	s.cue = cue
	s.count++
	return true
}

// Cue returns the cue produced by the last successful Scan.
func (s *Scanner) Cue() Cue {
	return s.cue
}

// Err returns the first error encountered, or nil on clean exhaustion.
func (s *Scanner) Err() error {
	return s.err
}

func (s *Scanner) scanHeader() bool {
	for s.pos < len(s.lines) && strings.TrimSpace(s.lines[s.pos]) == "" {
		s.pos++
	}
	if s.pos >= len(s.lines) {
		s.done = true
		s.err = ErrMalformedHeader
		return false
	}

	head := strings.TrimSpace(s.lines[s.pos])
	if head != Header && !strings.HasPrefix(head, Header+" ") && !strings.HasPrefix(head, Header+"\t") {
		s.done = true
		s.err = ErrMalformedHeader
		return false
	}
	s.pos++
	return true
}

// nextBlock returns the lines of the next blank-line-separated block and the
// 1-based line number of its first line, or nil at end of input.
func (s *Scanner) nextBlock() ([]string, int) {
	for s.pos < len(s.lines) && strings.TrimSpace(s.lines[s.pos]) == "" {
		s.pos++
	}
	if s.pos >= len(s.lines) {
		return nil, 0
	}

	first := s.pos + 1
	var block []string
	for s.pos < len(s.lines) && strings.TrimSpace(s.lines[s.pos]) != "" {
		block = append(block, s.lines[s.pos])
		s.pos++
	}
	return block, first
}

// parseBlock decodes one cue block. Lines before the timing line (WebVTT cue
// identifiers) are skipped; a block with no timing line at all is malformed.
func parseBlock(block []string, first int) (Cue, error) {
	for i, line := range block {
		startRaw, endRaw, ok := splitTiming(line)
		if !ok {
			continue
		}

		start, err := ParseTimestamp(startRaw)
		if err != nil {
			return Cue{}, fmt.Errorf("%w: line %d: %v", ErrMalformedCue, first+i, err)
		}
		end, err := ParseTimestamp(endRaw)
		if err != nil {
			return Cue{}, fmt.Errorf("%w: line %d: %v", ErrMalformedCue, first+i, err)
		}

		text := block[i+1:]
		if len(text) == 0 {
			return Cue{}, fmt.Errorf("%w: line %d: cue has no text", ErrMalformedCue, first+i)
		}
		return Cue{Start: start, End: end, Text: strings.Join(text, "\n")}, nil
	}
	return Cue{}, fmt.Errorf("%w: line %d: block has no timing line", ErrMalformedCue, first)
}

// splitTiming splits "start --> end", tolerating surrounding whitespace and
// ignoring WebVTT cue settings after the end timestamp.
func splitTiming(line string) (start, end string, ok bool) {
	lhs, rhs, found := strings.Cut(line, "-->")
	if !found {
		return "", "", false
	}
	start = strings.TrimSpace(lhs)
	end = strings.TrimSpace(rhs)
	if fields := strings.Fields(end); len(fields) > 0 {
		end = fields[0]
	}
	return start, end, start != "" && end != ""
}

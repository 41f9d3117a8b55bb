// Package ledger parses and rewrites task-list documents.
//
// A ledger is plain text where task entries are checkbox lines of the
// form "- [ ] T042 ..." or "- [x] T042 ...". Everything else is
// preserved verbatim; rewriting only ever flips a checkbox marker.
package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformed indicates a checkbox-looking line that does not match
// the entry grammar.
var ErrMalformed = errors.New("malformed ledger entry")

// entryPattern matches a well-formed task entry: optional indentation,
// a dash bullet, the checkbox marker, and an identifier token.
var entryPattern = regexp.MustCompile(`^(\s*)- \[( |x|X)\] (\S+)(.*)$`)

// entryCandidate matches anything that looks like it was meant to be a
// checkbox entry. Candidates that fail entryPattern are malformed
// rather than silently skipped.
var entryCandidate = regexp.MustCompile(`^\s*- \[`)

// Entry is one task line in a ledger document.
type Entry struct {
	// Identifier is the task token, e.g. "T042".
	Identifier string

	// Done reports whether the checkbox is checked.
	Done bool

	// Line is the zero-based line number within the document.
	Line int
}

// MalformedError carries the offending line of a parse failure.
type MalformedError struct {
	Line int
	Text string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed ledger entry at line %d: %q", e.Line+1, e.Text)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformed
}

// Parse extracts the ordered task entries from a ledger document.
// Returns a MalformedError if a checkbox-style line cannot be matched
// to the entry grammar.
func Parse(document string) ([]Entry, error) {
	lines := strings.Split(document, "\n")
	entries := make([]Entry, 0, len(lines))

	for i, line := range lines {
		m := entryPattern.FindStringSubmatch(line)
		if m == nil {
			if entryCandidate.MatchString(line) {
				return nil, &MalformedError{Line: i, Text: line}
			}
			continue
		}
		entries = append(entries, Entry{
			Identifier: m[3],
			Done:       m[2] != " ",
			Line:       i,
		})
	}

	return entries, nil
}

// MarkDone returns the document with the entries for the given
// identifiers checked, plus the number of entries newly marked.
//
// The operation is idempotent: an entry already done is left unchanged
// and not counted, and an identifier with no matching entry is ignored
// (the task may live in a phase file already merged). All other bytes
// of the document are preserved exactly.
func MarkDone(document string, identifiers []string) (string, int, error) {
	if len(identifiers) == 0 {
		return document, 0, nil
	}

	want := make(map[string]bool, len(identifiers))
	for _, id := range identifiers {
		want[id] = true
	}

	lines := strings.Split(document, "\n")
	marked := 0

	for i, line := range lines {
		m := entryPattern.FindStringSubmatch(line)
		if m == nil {
			if entryCandidate.MatchString(line) {
				return "", 0, &MalformedError{Line: i, Text: line}
			}
			continue
		}
		if !want[m[3]] || m[2] != " " {
			continue
		}
		lines[i] = m[1] + "- [x] " + m[3] + m[4]
		marked++
	}

	return strings.Join(lines, "\n"), marked, nil
}

// Count returns the total and completed entry counts of a document.
func Count(document string) (total, completed int, err error) {
	entries, err := Parse(document)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		total++
		if e.Done {
			completed++
		}
	}
	return total, completed, nil
}

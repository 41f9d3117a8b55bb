package finalize

import (
	"regexp"
	"strings"
)

// checklistLine matches one checkbox line in a parent issue body.
// Checklist items carry free text, unlike ledger entries which start
// with a task identifier.
var checklistLine = regexp.MustCompile(`^(\s*[-*] \[)( |x|X)(\] .*)$`)

// toggleChecklist checks the single checklist line referencing marker
// (the phase issue number, e.g. "#610"). Only that line changes; every
// other line is returned byte-identical. The stable per-phase marker
// is used instead of a line index so reordering the checklist does not
// break the patch.
//
// Returns the new body, whether the line was flipped by this call, and
// whether a matching line was found at all.
func toggleChecklist(body, marker string) (out string, changed, found bool) {
	lines := strings.Split(body, "\n")

	for i, line := range lines {
		m := checklistLine.FindStringSubmatch(line)
		if m == nil || !containsMarker(line, marker) {
			continue
		}
		found = true
		if m[2] == " " {
			lines[i] = m[1] + "x" + m[3]
			changed = true
		}
		break
	}

	return strings.Join(lines, "\n"), changed, found
}

// countChecklist tallies the checkbox lines of a body.
func countChecklist(body string) (total, done int) {
	for _, line := range strings.Split(body, "\n") {
		m := checklistLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		total++
		if m[2] != " " {
			done++
		}
	}
	return total, done
}

// containsMarker reports whether line references marker as a whole
// token; "#61" must not match "#610".
func containsMarker(line, marker string) bool {
	for idx := strings.Index(line, marker); idx >= 0; {
		end := idx + len(marker)
		if end >= len(line) || line[end] < '0' || line[end] > '9' {
			return true
		}
		next := strings.Index(line[end:], marker)
		if next < 0 {
			return false
		}
		idx = end + next
	}
	return false
}

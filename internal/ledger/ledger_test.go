package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `# Tasks: retry support

## Phase 1

- [x] T001 Add fetcher interface
- [x] T002 Wire config
- [ ] T003 Implement backoff

Some prose between entries.

- [ ] T004 Integration test
- [x] T005 Docs
`

func TestParse(t *testing.T) {
	entries, err := Parse(sampleDoc)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	assert.Equal(t, "T001", entries[0].Identifier)
	assert.True(t, entries[0].Done)
	assert.Equal(t, "T003", entries[2].Identifier)
	assert.False(t, entries[2].Done)

	// Order follows the document.
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i].Line, entries[i-1].Line)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad marker", "- [y] T001 something\n"},
		{"missing identifier", "- [ ]\n"},
		{"unclosed checkbox", "- [ T001 something\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.doc)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)

			var malformed *MalformedError
			require.ErrorAs(t, err, &malformed)
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestParse_EmptyToggleRoundTrip(t *testing.T) {
	// Marking nothing must reproduce the document byte-for-byte.
	out, marked, err := MarkDone(sampleDoc, nil)
	require.NoError(t, err)
	assert.Equal(t, sampleDoc, out)
	assert.Equal(t, 0, marked)
}

func TestMarkDone(t *testing.T) {
	out, marked, err := MarkDone(sampleDoc, []string{"T003", "T004"})
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	entries, err := Parse(out)
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, e.Done, "entry %s should be done", e.Identifier)
	}

	// Non-entry lines survive untouched.
	assert.Contains(t, out, "Some prose between entries.")
	assert.Contains(t, out, "# Tasks: retry support")
}

func TestMarkDone_Idempotent(t *testing.T) {
	once, marked, err := MarkDone(sampleDoc, []string{"T003"})
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	twice, marked, err := MarkDone(once, []string{"T003"})
	require.NoError(t, err)
	assert.Equal(t, 0, marked, "already-done entry must not be double-counted")
	assert.Equal(t, once, twice)
}

func TestMarkDone_UnknownIdentifierIgnored(t *testing.T) {
	// Tasks owned by another phase file are silently skipped.
	out, marked, err := MarkDone(sampleDoc, []string{"T099"})
	require.NoError(t, err)
	assert.Equal(t, 0, marked)
	assert.Equal(t, sampleDoc, out)
}

func TestMarkDone_PreservesIndentation(t *testing.T) {
	doc := "  - [ ] T010 nested task\n"
	out, marked, err := MarkDone(doc, []string{"T010"})
	require.NoError(t, err)
	assert.Equal(t, 1, marked)
	assert.Equal(t, "  - [x] T010 nested task\n", out)
}

func TestCount(t *testing.T) {
	total, completed, err := Count(sampleDoc)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, 3, completed)
}

func TestCount_Malformed(t *testing.T) {
	_, _, err := Count("- [?] T001 broken\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

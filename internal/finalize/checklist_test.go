package finalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parentBody = `## Feature: retry support

Phases:

- [x] Phase 1: design (#601)
- [x] Phase 2: fetcher (#605)
- [ ] Phase 3: storage (#610)
- [ ] Phase 4: integration (#612)

Notes below the checklist.
`

func TestToggleChecklist(t *testing.T) {
	out, changed, found := toggleChecklist(parentBody, "#610")
	assert.True(t, found)
	assert.True(t, changed)
	assert.Contains(t, out, "- [x] Phase 3: storage (#610)")
}

func TestToggleChecklist_PatchLocality(t *testing.T) {
	out, _, found := toggleChecklist(parentBody, "#610")
	require.True(t, found)

	before := strings.Split(parentBody, "\n")
	after := strings.Split(out, "\n")
	require.Equal(t, len(before), len(after))

	// Only the matched line may differ; every other line is
	// byte-identical, including the other phase checkboxes.
	for i := range before {
		if strings.Contains(before[i], "#610") {
			assert.NotEqual(t, before[i], after[i])
			continue
		}
		assert.Equal(t, before[i], after[i], "line %d changed", i)
	}
}

func TestToggleChecklist_AlreadyChecked(t *testing.T) {
	out, changed, found := toggleChecklist(parentBody, "#601")
	assert.True(t, found)
	assert.False(t, changed)
	assert.Equal(t, parentBody, out)
}

func TestToggleChecklist_NotFound(t *testing.T) {
	out, changed, found := toggleChecklist(parentBody, "#999")
	assert.False(t, found)
	assert.False(t, changed)
	assert.Equal(t, parentBody, out)
}

func TestToggleChecklist_MarkerIsWholeToken(t *testing.T) {
	// "#61" must not match the "#610" line.
	body := "- [ ] Phase A (#610)\n- [ ] Phase B (#61)\n"
	out, changed, found := toggleChecklist(body, "#61")
	assert.True(t, found)
	assert.True(t, changed)
	assert.Contains(t, out, "- [ ] Phase A (#610)")
	assert.Contains(t, out, "- [x] Phase B (#61)")
}

func TestCountChecklist(t *testing.T) {
	total, done := countChecklist(parentBody)
	assert.Equal(t, 4, total)
	assert.Equal(t, 2, done)
}

func TestCountChecklist_EmptyBody(t *testing.T) {
	total, done := countChecklist("")
	assert.Zero(t, total)
	assert.Zero(t, done)
}

package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_RoundTrip(t *testing.T) {
	for _, payload := range []string{
		"Senior backend engineer",
		"  padded both sides \n",
		"multi\nline\n\n- bullet\n",
		"",
	} {
		got := Extract(Wrap(payload))
		assert.True(t, got.Found, payload)
		assert.Equal(t, "", got.CleanText, payload)
		assert.Equal(t, strings.TrimSpace(payload), got.Payload, payload)
	}
}

func TestExtract_NoDelimitersLeavesTextUntouched(t *testing.T) {
	for _, text := range []string{
		"",
		"plain answer",
		"  leading and trailing whitespace stays  \n",
		"[REVISED] not the token",
	} {
		got := Extract(text)
		assert.False(t, got.Found)
		assert.Equal(t, text, got.CleanText)
		assert.Empty(t, got.Payload)
	}
}

func TestExtract_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"open only", "Here you go\n[REVISED_PROMPT]new notes"},
		{"close only", "Here you go\nnew notes[/REVISED_PROMPT]"},
		{"out of order", "[/REVISED_PROMPT]new notes[REVISED_PROMPT]"},
		{"wrong case", "[revised_prompt]new notes[/revised_prompt]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			assert.False(t, got.Found)
			assert.Equal(t, tt.text, got.CleanText)
			assert.Empty(t, got.Payload)
		})
	}
}

func TestExtract_OnlyFirstBlockCounts(t *testing.T) {
	text := "A " + Wrap("one") + " B " + Wrap("two")
	got := Extract(text)

	assert.True(t, got.Found)
	assert.Equal(t, "one", got.Payload)
	assert.Equal(t, "A  B "+Wrap("two"), got.CleanText)
}

func TestExtract_ShortestMatchFromLeftmostOpen(t *testing.T) {
	got := Extract("x [REVISED_PROMPT]a[REVISED_PROMPT]b[/REVISED_PROMPT] y [/REVISED_PROMPT]")

	assert.True(t, got.Found)
	assert.Equal(t, "a[REVISED_PROMPT]b", got.Payload)
	assert.Equal(t, "x  y [/REVISED_PROMPT]", got.CleanText)
}

func TestExtract_ReplyWithRevision(t *testing.T) {
	reply := "I'll add a remote policy.\n[REVISED_PROMPT]Senior backend engineer...\nRemote-first.[/REVISED_PROMPT]"
	got := Extract(reply)

	assert.True(t, got.Found)
	assert.Equal(t, "I'll add a remote policy.", got.CleanText)
	assert.True(t, strings.HasPrefix(got.Payload, "Senior backend engineer"))
	assert.Equal(t, "Senior backend engineer...\nRemote-first.", got.Payload)
}

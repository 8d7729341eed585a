package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatContext(t *testing.T) {
	msgs := []UserMessage{
		{UserID: "system", Text: "festival tonight"},
		{UserID: "42", Text: "hi Reimu"},
	}
	assert.Equal(t, "system says festival tonight\n42 says hi Reimu", FormatContext(msgs, 3000, 1500))
	assert.Empty(t, FormatContext(nil, 3000, 1500))
}

func TestFormatContext_TruncatesLongContext(t *testing.T) {
	msgs := []UserMessage{{UserID: "42", Text: strings.Repeat("お賽銭 ", 4000)}}

	got := FormatContext(msgs, 3000, 1500)
	assert.Equal(t, 1500, len([]rune(got)))
	assert.True(t, strings.HasPrefix(got, "42 says お賽銭"))

	short := []UserMessage{{UserID: "42", Text: strings.Repeat("word ", 100)}}
	assert.Equal(t, FormatContext(short, 0, 10), FormatContext(short, 3000, 10), "under the word limit nothing is cut")
}

func TestPersona_SeedsDefault(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(10)

	persona, err := Persona(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, DefaultPersona, persona)

	infos, err := store.BackgroundInfo(ctx, PersonaOwner)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	require.NoError(t, store.AddBackgroundInfo(ctx, PersonaOwner, "Recently got a new broom."))
	persona, err = Persona(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, DefaultPersona+"\nRecently got a new broom.", persona)
}

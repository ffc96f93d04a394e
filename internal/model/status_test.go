package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusValid(t *testing.T) {
	for s := StatusInitial; s <= StatusCompleted; s++ {
		assert.True(t, s.Valid(), "status %d", s)
	}
	assert.False(t, Status(-1).Valid())
	assert.False(t, Status(9).Valid())
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	for s := StatusInitial; s < StatusCompleted; s++ {
		assert.False(t, s.Terminal(), "status %d", s)
	}
}

func TestStatusNamesRoundTrip(t *testing.T) {
	names := NewStatusNames()

	for _, lang := range []Language{LanguageSpanish, LanguageEnglish} {
		for s := StatusInitial; s <= StatusCompleted; s++ {
			text, err := names.Text(s, lang)
			require.NoError(t, err)
			require.NotEmpty(t, text)

			parsed, err := names.Parse(text, lang)
			require.NoError(t, err)
			assert.Equal(t, s, parsed, "%s/%s", lang, text)
		}
	}
}

func TestStatusNamesParseCaseInsensitive(t *testing.T) {
	names := NewStatusNames()

	text, err := names.Text(StatusForAuditing, LanguageSpanish)
	require.NoError(t, err)

	parsed, err := names.Parse(strings.ToUpper(text), LanguageSpanish)
	require.NoError(t, err)
	assert.Equal(t, StatusForAuditing, parsed)
}

func TestStatusNamesUnknown(t *testing.T) {
	names := NewStatusNames()

	_, err := names.Text(Status(42), LanguageEnglish)
	assert.Error(t, err)

	_, err = names.Text(StatusInitial, Language("fr"))
	assert.Error(t, err)

	_, err = names.Parse("no such status", LanguageEnglish)
	assert.Error(t, err)
}

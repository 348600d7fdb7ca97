package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookClone_IsDeep(t *testing.T) {
	t.Parallel()

	orig := Book{
		Title:      "Dragon Keeper",
		Authors:    []string{"Robin Hobb"},
		Categories: []string{"Fiction"},
		PageCount:  IntPtr(512),
	}
	cp := orig.Clone()

	cp.Authors[0] = "Someone Else"
	cp.Categories = append(cp.Categories, "Fantasy")
	*cp.PageCount = 1

	assert.Equal(t, "Robin Hobb", orig.Authors[0])
	assert.Equal(t, []string{"Fiction"}, orig.Categories)
	assert.Equal(t, 512, *orig.PageCount)
}

func TestBookClone_NilStaysNil(t *testing.T) {
	t.Parallel()

	cp := Book{Title: "x"}.Clone()
	assert.Nil(t, cp.Authors)
	assert.Nil(t, cp.Categories)
	assert.Nil(t, cp.PageCount)
}

func TestBookFirstAuthor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Book{}.FirstAuthor())
	assert.Equal(t, "A", Book{Authors: []string{"A", "B"}}.FirstAuthor())
}

func TestBookJSON_OmitsAbsentFields(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Book{Title: "Dune", ISBN: "9780441013593"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Dune","isbn":"9780441013593"}`, string(data))
}

func TestSourceConfig_HasCredential(t *testing.T) {
	t.Parallel()

	assert.False(t, SourceConfig{Name: SourceOpenLibrary}.HasCredential())
	assert.True(t, SourceConfig{Name: SourceHardcover, APIKey: "k"}.HasCredential())
}

func TestSourceConfig_JSONHidesAPIKey(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(SourceConfig{Name: "custom", APIKey: "secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}

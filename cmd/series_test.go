package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNames(t *testing.T) {
	changes, groups := normalizeNames([]string{
		"The Farseer Trilogy",
		"Farseer",
		"Farseer Trilogy",
		"Discworld, Vol.",
		"   ",
	})

	require.Len(t, changes, 5)
	assert.Equal(t, seriesChange{Input: "The Farseer Trilogy", Normalized: "Farseer", Changed: true}, changes[0])
	assert.Equal(t, seriesChange{Input: "Farseer", Normalized: "Farseer", Changed: false}, changes[1])
	assert.Equal(t, "", changes[4].Normalized)

	require.Len(t, groups, 2)
	assert.Equal(t, seriesGroup{Name: "Farseer", Count: 3, Variants: []string{"The Farseer Trilogy", "Farseer", "Farseer Trilogy"}}, groups[0])
	assert.Equal(t, "Discworld", groups[1].Name)
}

func TestNormalizeNames_TiesSortByName(t *testing.T) {
	_, groups := normalizeNames([]string{"Wheel of Time", "Dune Saga"})
	require.Len(t, groups, 2)
	assert.Equal(t, "Dune", groups[0].Name)
	assert.Equal(t, "Wheel of Time", groups[1].Name)
}

func TestSeriesNormalizeCmd_Args(t *testing.T) {
	var out bytes.Buffer
	seriesNormalizeCmd.SetOut(&out)
	seriesJSON = false
	t.Cleanup(func() { seriesNormalizeCmd.SetOut(nil) })

	err := seriesNormalizeCmd.RunE(seriesNormalizeCmd, []string{"Harry Potter Saga", "Harry Potter"})
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "INPUT")
	assert.Contains(t, s, "Harry Potter Saga")
	assert.Contains(t, s, "2 names, 1 changed, 1 series")
}

func TestSeriesNormalizeCmd_StdinJSON(t *testing.T) {
	var out bytes.Buffer
	seriesNormalizeCmd.SetOut(&out)
	seriesNormalizeCmd.SetIn(strings.NewReader("The Hobbit Series\n\nLiveship Traders, Book\n"))
	seriesJSON = true
	t.Cleanup(func() {
		seriesNormalizeCmd.SetOut(nil)
		seriesNormalizeCmd.SetIn(nil)
		seriesJSON = false
	})

	require.NoError(t, seriesNormalizeCmd.RunE(seriesNormalizeCmd, nil))

	var resp normalizeResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Hobbit", resp.Results[0].Normalized)
	assert.Equal(t, "Liveship Traders", resp.Results[1].Normalized)
}

func TestSeriesNormalizeCmd_NoInput(t *testing.T) {
	seriesNormalizeCmd.SetIn(strings.NewReader(""))
	t.Cleanup(func() { seriesNormalizeCmd.SetIn(nil) })

	err := seriesNormalizeCmd.RunE(seriesNormalizeCmd, nil)
	assert.ErrorContains(t, err, "no series names")
}

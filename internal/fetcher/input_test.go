package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, in string, format string) ([]string, error) {
	t.Helper()
	out, errCh := StreamISBNs(context.Background(), strings.NewReader(in), format)
	var got []string
	for v := range out {
		got = append(got, v)
	}
	return got, <-errCh
}

func TestStreamISBNs_CSVWithHeader(t *testing.T) {
	got, err := collect(t, "title,isbn\nDune,9780441013593\nNo ISBN,\n# comment\nHobbit, 9780261103344\n", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"9780441013593", "9780261103344"}, got)
}

func TestStreamISBNs_CSVWithoutHeader(t *testing.T) {
	got, err := collect(t, "9780441013593\n0306406152\n", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"9780441013593", "0306406152"}, got)
}

func TestStreamISBNs_JSONMixed(t *testing.T) {
	got, err := collect(t, `["9780441013593", {"isbn": "0306406152"}, {"title": "x"}, ""]`, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"9780441013593", "0306406152"}, got)
}

func TestStreamISBNs_JSONNotArray(t *testing.T) {
	_, err := collect(t, `{"isbn":"1"}`, FormatJSON)
	assert.ErrorContains(t, err, "expected '['")
}

func TestStreamISBNs_JSONEmpty(t *testing.T) {
	got, err := collect(t, ``, FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStreamISBNs_UnknownFormat(t *testing.T) {
	_, err := collect(t, "x", "xlsx")
	assert.ErrorContains(t, err, "unknown format")
}

func TestStreamISBNs_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, errCh := StreamISBNs(ctx, strings.NewReader("1\n2\n3\n"), FormatCSV)
	for range out {
	}
	assert.Error(t, <-errCh)
}

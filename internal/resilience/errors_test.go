package resilience

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, IsRetryableStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 408} {
		assert.False(t, IsRetryableStatus(code), code)
	}
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errBoom))
	assert.False(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(NewStatusError("x", http.StatusServiceUnavailable, nil)))
	assert.True(t, IsTransient(eris.Wrap(NewStatusError("x", 429, nil), "google books: search")))
	assert.False(t, IsTransient(NewStatusError("x", 404, nil)))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewStatusError("x", 404, nil)))
	assert.False(t, IsNotFound(NewStatusError("x", 500, nil)))
	assert.False(t, IsNotFound(errBoom))
}

func TestStatusError_TruncatesBody(t *testing.T) {
	err := NewStatusError("open library", 500, []byte(strings.Repeat("x", 2000)))
	assert.Len(t, err.Body, 512)
	assert.Contains(t, err.Error(), "open library: unexpected status 500")
}

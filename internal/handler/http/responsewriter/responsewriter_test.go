package responsewriter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_Defaults(t *testing.T) {
	wrapped := Wrap(httptest.NewRecorder())

	assert.Equal(t, http.StatusOK, wrapped.StatusCode())
	assert.Zero(t, wrapped.BytesWritten())
	assert.False(t, wrapped.HeaderWritten())
}

func TestWrap_Idempotent(t *testing.T) {
	wrapped := Wrap(httptest.NewRecorder())
	assert.Same(t, wrapped, Wrap(wrapped))
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := Wrap(rec)

	wrapped.WriteHeader(http.StatusTooManyRequests)
	wrapped.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusTooManyRequests, wrapped.StatusCode())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.True(t, wrapped.HeaderWritten())
}

func TestResponseWriter_WriteCountsBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := Wrap(rec)

	n, err := wrapped.Write([]byte(`{"level":1}`))
	require.NoError(t, err)
	_, err = wrapped.Write([]byte("\n"))
	require.NoError(t, err)

	assert.Equal(t, 11, n)
	assert.Equal(t, 12, wrapped.BytesWritten())
	assert.Equal(t, http.StatusOK, wrapped.StatusCode())
	assert.Equal(t, `{"level":1}`+"\n", rec.Body.String())
}

func TestResponseWriter_Unwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.Equal(t, rec, Wrap(rec).Unwrap())
}

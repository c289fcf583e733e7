package api

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeekUserIDExtractsAndPreservesBody(t *testing.T) {
	body := `{"user_id":"u-17","client_id":"c1"}`
	r := httptest.NewRequest("POST", "/clients/get", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	assert.Equal(t, "u-17", peekUserID(r))

	// The proxied service must still see the full payload.
	remaining, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(remaining))
}

func TestPeekUserIDIgnoresNonJSONAndOtherMethods(t *testing.T) {
	r := httptest.NewRequest("POST", "/docs/upload", strings.NewReader("user_id=u-17"))
	r.Header.Set("Content-Type", "multipart/form-data")
	assert.Empty(t, peekUserID(r))

	get := httptest.NewRequest("GET", "/health", nil)
	assert.Empty(t, peekUserID(get))
}

func TestPeekUserIDToleratesMalformedBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/clients/get", strings.NewReader("{not json"))
	r.Header.Set("Content-Type", "application/json")
	assert.Empty(t, peekUserID(r))

	remaining, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(remaining))
}

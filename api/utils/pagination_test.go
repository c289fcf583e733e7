package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPaginationDefaults(t *testing.T) {
	r := httptest.NewRequest("POST", "/clients/list", nil)
	p, err := ExtractPagination(r)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 50, p.Limit)
	assert.Equal(t, 0, p.Offset)
}

func TestExtractPaginationOffsets(t *testing.T) {
	r := httptest.NewRequest("POST", "/clients/list?page=3&limit=20", nil)
	p, err := ExtractPagination(r)
	require.NoError(t, err)
	assert.Equal(t, 40, p.Offset)
}

func TestExtractPaginationRejectsBadValues(t *testing.T) {
	for _, q := range []string{"page=0", "page=x", "limit=-5"} {
		r := httptest.NewRequest("POST", "/clients/list?"+q, nil)
		_, err := ExtractPagination(r)
		assert.Error(t, err, q)
	}
}

func TestSetPaginationStats(t *testing.T) {
	p := PaginationParams{Page: 1, Limit: 20}
	p.SetPaginationStats(45)
	assert.Equal(t, 45, p.TotalRecords)
	assert.Equal(t, 3, p.TotalPages)

	p.SetPaginationStats(0)
	assert.Equal(t, 0, p.TotalPages)
}

package httpresponse

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewEmptyPaginatedResponse(t *testing.T) {
	resp := NewEmptyPaginatedResponse()
	assert.Equal(t, 0, resp.Pagination.Pages)
	assert.Equal(t, int64(0), resp.Pagination.Total)
	assert.JSONEq(t, "[]", string(resp.Data))
	assert.Empty(t, resp.Pagination.Next)
	assert.Empty(t, resp.Pagination.Prev)
}

func Test_NewPaginatedResponse(t *testing.T) {
	type item struct {
		ID int64 `json:"id"`
	}

	t.Run("first page of several", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transfers?userId=user-1&page=0&size=2", nil)

		resp, err := NewPaginatedResponse(req, []item{{ID: 1}, {ID: 2}}, 0, 2, 5)
		require.NoError(t, err)

		assert.Equal(t, 3, resp.Pagination.Pages)
		assert.Equal(t, int64(5), resp.Pagination.Total)
		assert.Equal(t, "/transfers?page=1&size=2&userId=user-1", resp.Pagination.Next)
		assert.Empty(t, resp.Pagination.Prev)
		assert.JSONEq(t, `[{"id":1},{"id":2}]`, string(resp.Data))
	})

	t.Run("middle page has both links", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transfers?userId=user-1&page=1&size=2", nil)

		resp, err := NewPaginatedResponse(req, []item{{ID: 3}, {ID: 4}}, 1, 2, 5)
		require.NoError(t, err)

		assert.Equal(t, "/transfers?page=2&size=2&userId=user-1", resp.Pagination.Next)
		assert.Equal(t, "/transfers?page=0&size=2&userId=user-1", resp.Pagination.Prev)
	})

	t.Run("last page has no next link", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transfers?userId=user-1&page=2&size=2", nil)

		resp, err := NewPaginatedResponse(req, []item{{ID: 5}}, 2, 2, 5)
		require.NoError(t, err)

		assert.Empty(t, resp.Pagination.Next)
		assert.Equal(t, "/transfers?page=1&size=2&userId=user-1", resp.Pagination.Prev)
	})

	t.Run("single page has no links", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transfers?userId=user-1", nil)

		resp, err := NewPaginatedResponse(req, []item{{ID: 1}}, 0, 20, 1)
		require.NoError(t, err)

		assert.Equal(t, 1, resp.Pagination.Pages)
		assert.Empty(t, resp.Pagination.Next)
		assert.Empty(t, resp.Pagination.Prev)
	})
}

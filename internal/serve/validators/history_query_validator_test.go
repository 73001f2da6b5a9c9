package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_HistoryQueryValidator_ValidatePagination(t *testing.T) {
	testCases := []struct {
		name      string
		pageParam string
		sizeParam string
		wantPage  int
		wantSize  int
		wantErrs  map[string]interface{}
	}{
		{name: "defaults", pageParam: "", sizeParam: "", wantPage: 0, wantSize: DefaultPageSize},
		{name: "explicit values", pageParam: "3", sizeParam: "50", wantPage: 3, wantSize: 50},
		{name: "page zero is valid", pageParam: "0", sizeParam: "1", wantPage: 0, wantSize: 1},
		{name: "size above the cap clamps", pageParam: "1", sizeParam: "500", wantPage: 1, wantSize: MaxPageSize},
		{
			name: "negative page", pageParam: "-1", sizeParam: "", wantPage: 0, wantSize: DefaultPageSize,
			wantErrs: map[string]interface{}{"page": "page must be a non-negative integer"},
		},
		{
			name: "non-numeric page", pageParam: "abc", sizeParam: "", wantPage: 0, wantSize: DefaultPageSize,
			wantErrs: map[string]interface{}{"page": "page must be a non-negative integer"},
		},
		{
			name: "zero size", pageParam: "", sizeParam: "0", wantPage: 0, wantSize: DefaultPageSize,
			wantErrs: map[string]interface{}{"size": "size must be a positive integer"},
		},
		{
			name: "negative size", pageParam: "", sizeParam: "-5", wantPage: 0, wantSize: DefaultPageSize,
			wantErrs: map[string]interface{}{"size": "size must be a positive integer"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			qv := NewHistoryQueryValidator()
			gotPage, gotSize := qv.ValidatePagination(tc.pageParam, tc.sizeParam)
			assert.Equal(t, tc.wantPage, gotPage)
			assert.Equal(t, tc.wantSize, gotSize)
			if len(tc.wantErrs) > 0 {
				assert.Equal(t, tc.wantErrs, qv.Errors)
			} else {
				assert.False(t, qv.HasErrors())
			}
		})
	}
}

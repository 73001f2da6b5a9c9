package validators

import (
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type HistoryQueryValidator struct {
	*Validator
}

func NewHistoryQueryValidator() *HistoryQueryValidator {
	return &HistoryQueryValidator{Validator: NewValidator()}
}

// ValidatePagination parses and clamps the page and size query parameters. page is 0-based
// and defaults to 0; size defaults to 20 and is capped at 100.
func (qv *HistoryQueryValidator) ValidatePagination(pageParam, sizeParam string) (page, size int) {
	page = 0
	if pageParam != "" {
		parsed, err := strconv.Atoi(pageParam)
		if err != nil || parsed < 0 {
			qv.AddError("page", "page must be a non-negative integer")
		} else {
			page = parsed
		}
	}

	size = DefaultPageSize
	if sizeParam != "" {
		parsed, err := strconv.Atoi(sizeParam)
		if err != nil || parsed < 1 {
			qv.AddError("size", "size must be a positive integer")
		} else if parsed > MaxPageSize {
			size = MaxPageSize
		} else {
			size = parsed
		}
	}

	return page, size
}

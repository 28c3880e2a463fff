package mailbox

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Fixed page sizes per view. Clients cannot choose a page size.
const (
	InboxPageSize         = 10
	ThreadPageSize        = 20
	InvestigationPageSize = 20
)

var (
	// ErrInvalidPage marks a page parameter that is not a positive integer.
	ErrInvalidPage = errors.New("page must be a positive integer")
	// ErrPageOutOfRange marks a page beyond the last page of a collection.
	ErrPageOutOfRange = errors.New("page out of range")
)

// Pagination is the metadata block attached to every paginated response.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Paginate slices items into the requested 1-based page. An empty collection
// has exactly one (empty) page, so page 1 always succeeds. A page past the
// last returns ErrPageOutOfRange.
func Paginate[T any](items []T, page, perPage int) ([]T, Pagination, error) {
	if page < 1 {
		return nil, Pagination{}, ErrInvalidPage
	}

	if len(items) == 0 {
		return items, Pagination{Page: 1, PerPage: perPage, TotalItems: 0, TotalPages: 1}, nil
	}

	totalItems := len(items)
	totalPages := (totalItems + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		return nil, Pagination{}, fmt.Errorf("%w: page %d exceeds total pages (%d)", ErrPageOutOfRange, page, totalPages)
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > totalItems {
		start = totalItems
	}
	if end > totalItems {
		end = totalItems
	}

	meta := Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
	return items[start:end], meta, nil
}

// ValidatePage validates a raw page parameter. Strictly integral: "2.0",
// "1e1" and friends are rejected even though they parse as numbers.
func ValidatePage(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}
	if strings.ContainsAny(raw, ".eE+") {
		return 0, ErrInvalidPage
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, ErrInvalidPage
	}
	return page, nil
}

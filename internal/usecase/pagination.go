package usecase

import "github.com/naka-gawa/pr-tracker/internal/domain"

// ComputePagination derives page metadata from a total count. A non-positive perPage
// yields zero pages.
func ComputePagination(totalCount, page, perPage int) domain.PaginationMeta {
	meta := domain.PaginationMeta{
		Page:       page,
		PerPage:    perPage,
		TotalCount: totalCount,
	}
	if perPage > 0 && totalCount > 0 {
		meta.TotalPages = (totalCount + perPage - 1) / perPage
	}
	meta.HasNext = page < meta.TotalPages
	meta.HasPrevious = page > 1
	return meta
}

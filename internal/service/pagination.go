package service

import "github.com/unclebandit/crm-backend/internal/repository"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// paginate clamps page/pageSize and turns them into an offset window.
func paginate(page, pageSize int) (repository.Page, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return repository.Page{Offset: (page - 1) * pageSize, Limit: pageSize}, page, pageSize
}

func paginationMeta(page, pageSize, total int) map[string]int {
	return map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": (total + pageSize - 1) / pageSize,
	}
}

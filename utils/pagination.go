package utils

import (
	"strconv"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type PageRequest struct {
	Page     int
	PageSize int
}

// ParsePageRequest reads page and page_size query values, falling back to
// defaults for missing or malformed input and clamping the size to max.
func ParsePageRequest(page, pageSize string, defaultSize, maxSize int) PageRequest {
	p, err := strconv.Atoi(page)
	if err != nil || p < 1 {
		p = 1
	}
	size, err := strconv.Atoi(pageSize)
	if err != nil || size < 1 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	return PageRequest{Page: p, PageSize: size}
}

func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

type Page[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  []T   `json:"results"`
}

// Paginate counts and fetches one page of query. The query is not consumed
// and can be paginated again. fetch scopes, such as preloads, apply to the
// page fetch only.
func Paginate[T any](query *gorm.DB, order string, req PageRequest, fetch ...func(*gorm.DB) *gorm.DB) (Page[T], error) {
	q := query.Session(&gorm.Session{})
	page := Page[T]{Page: req.Page, PageSize: req.PageSize, Results: []T{}}

	if err := q.Count(&page.Count).Error; err != nil {
		return page, errors.Wrap(err, "count results")
	}
	if page.Count == 0 {
		return page, nil
	}
	if err := q.Scopes(fetch...).Order(order).Limit(req.PageSize).Offset(req.Offset()).Find(&page.Results).Error; err != nil {
		return page, errors.Wrap(err, "fetch page")
	}
	return page, nil
}

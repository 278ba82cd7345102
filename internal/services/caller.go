package services

import (
	"math"

	"bankcards/internal/models"
)

// Caller is the authenticated identity a request runs as.
type Caller struct {
	UserID   string
	Username string
	Role     models.Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is a 1-based page number and a page size.
type PageRequest struct {
	Page int
	Size int
}

// NewPageRequest clamps page to at least 1 and size into [1, MaxPageSize],
// using DefaultPageSize when size is not positive. Page is capped so that
// Offset cannot overflow.
func NewPageRequest(page, size int) PageRequest {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page > math.MaxInt/size {
		page = math.MaxInt / size
	}
	return PageRequest{Page: page, Size: size}
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Size
}

type Page[T any] struct {
	Content []T `json:"content"`
	Page    int `json:"page"`
	Size    int `json:"size"`
	Total   int `json:"total"`
}

func newPage[T any](content []T, req PageRequest, total int) Page[T] {
	if content == nil {
		content = []T{}
	}
	return Page[T]{Content: content, Page: req.Page, Size: req.Size, Total: total}
}

package models

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Paging is 1-based. Zero values select the first page of DefaultPageSize.
type Paging struct {
	Page  int `form:"page" json:"page"`
	Limit int `form:"limit" json:"limit"`
}

func (p Paging) normalize() Paging {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

func (p Paging) Offset() int {
	n := p.normalize()
	return (n.Page - 1) * n.Limit
}

type PageInfo struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"has_next"`
}

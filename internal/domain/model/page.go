package model

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) Offset() int { return (p.Page - 1) * p.Limit }

func (p PageRequest) Valid() bool {
	return p.Page >= 1 && p.Limit >= 1 && p.Limit <= MaxLimit
}

// Page is the paginated list envelope returned by every public listing.
type Page[T any] struct {
	Result    []T `json:"result"`
	Page      int `json:"page"`
	Limit     int `json:"limit"`
	LastPage  int `json:"lastPage"`
	FirstPage int `json:"firstPage"`
	Size      int `json:"size"`
}

func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	last := 0
	if req.Limit > 0 {
		last = (total + req.Limit - 1) / req.Limit
	}
	return Page[T]{
		Result:    items,
		Page:      req.Page,
		Limit:     req.Limit,
		LastPage:  last,
		FirstPage: 1,
		Size:      len(items),
	}
}

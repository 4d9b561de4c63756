package views

import (
	"math"
	"strconv"
	"strings"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxOffset bounds (page-1)*limit so the window fits a Postgres integer.
	MaxOffset = math.MaxInt32
)

// PageRequest selects one page of an ordered result. Page is 1-based.
type PageRequest struct {
	Page  int
	Limit int
}

// FirstPage is the page used when the caller does not ask for one.
var FirstPage = PageRequest{Page: DefaultPage, Limit: DefaultLimit}

// ParsePage reads page and limit query values. Empty values fall back to the
// defaults and limits above MaxLimit are clamped.
func ParsePage(page, limit string) (PageRequest, error) {
	req := FirstPage
	var details []string

	if page = strings.TrimSpace(page); page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			details = append(details, "page must be a positive integer")
		} else {
			req.Page = n
		}
	}
	if limit = strings.TrimSpace(limit); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			details = append(details, "limit must be a positive integer")
		} else {
			req.Limit = min(n, MaxLimit)
		}
	}

	if len(details) == 0 && !req.inRange() {
		details = append(details, "page is out of range")
	}

	if len(details) > 0 {
		return PageRequest{}, apperror.Validation("invalid pagination", details...)
	}
	return req, nil
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	p.Limit = min(p.Limit, MaxLimit)
	if !p.inRange() {
		p.Page = MaxOffset/p.Limit + 1
	}
	return p
}

func (p PageRequest) inRange() bool {
	return p.Page-1 <= MaxOffset/p.Limit
}

// Window converts the request into an offset/limit slice.
func (p PageRequest) Window() models.Window {
	p = p.normalize()
	return models.Window{Offset: (p.Page - 1) * p.Limit, Limit: p.Limit}
}

// Page is one page of a composed listing.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"hasMore"`
}

func newPage[T any](items []T, req PageRequest, total int64) Page[T] {
	req = req.normalize()
	if items == nil {
		items = []T{}
	}
	end := int64(req.Page-1)*int64(req.Limit) + int64(len(items))
	return Page[T]{
		Items:   items,
		Page:    req.Page,
		Limit:   req.Limit,
		Total:   total,
		HasMore: end < total,
	}
}

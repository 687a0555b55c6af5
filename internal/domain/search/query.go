package search

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Default search parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length after trimming.
	MaxQueryLength  = 2000
	DefaultPageSize = 20
	MaxPageSize     = 20
	// MaxExpansions is the upper bound on rewritten phrasings per query.
	MaxExpansions = 3
)

// Limits bounds query validation. Zero fields fall back to the package
// defaults.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
	MaxQueryLength  int
}

// DefaultLimits returns the package default limits.
func DefaultLimits() Limits {
	return Limits{
		DefaultPageSize: DefaultPageSize,
		MaxPageSize:     MaxPageSize,
		MaxQueryLength:  MaxQueryLength,
	}
}

func (l Limits) normalized() Limits {
	if l.DefaultPageSize <= 0 {
		l.DefaultPageSize = DefaultPageSize
	}
	if l.MaxPageSize <= 0 {
		l.MaxPageSize = MaxPageSize
	}
	if l.MaxQueryLength <= 0 {
		l.MaxQueryLength = MaxQueryLength
	}
	return l
}

// Query is a validated discovery search query.
type Query struct {
	text     string
	page     int
	pageSize int
}

// NewQuery validates and normalizes search parameters against the given
// limits. The text is trimmed and must be non-empty and at most
// MaxQueryLength runes. page is clamped to >= 0, pageSize to
// [1, MaxPageSize] with DefaultPageSize when unset.
func NewQuery(text string, page, pageSize int, lim Limits) (Query, error) {
	lim = lim.normalized()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Query{}, fmt.Errorf("query is required")
	}
	if utf8.RuneCountInString(trimmed) > lim.MaxQueryLength {
		return Query{}, fmt.Errorf("query too long (max %d chars)", lim.MaxQueryLength)
	}
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = lim.DefaultPageSize
	}
	if pageSize > lim.MaxPageSize {
		pageSize = lim.MaxPageSize
	}

	return Query{text: trimmed, page: page, pageSize: pageSize}, nil
}

// Text returns the trimmed query text.
func (q *Query) Text() string { return q.text }

// Page returns the zero-based page number.
func (q *Query) Page() int { return q.page }

// PageSize returns the page size.
func (q *Query) PageSize() int { return q.pageSize }

// Offset returns the index of the first result on this page.
func (q *Query) Offset() int { return q.page * q.pageSize }

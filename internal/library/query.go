package library

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sort keys accepted by Query.SortBy.
const (
	SortSavedAt   = "saved_at"
	SortTitle     = "title"
	SortViewCount = "view_count"
	SortLikeCount = "like_count"
	SortDuration  = "duration"
)

// Sort orders accepted by Query.Order.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Query filters and orders catalog entries. Empty fields do not filter.
type Query struct {
	// Search is a case-insensitive substring matched against title, description and tags.
	Search   string
	Tag      string
	Category string
	Uploader string
	SortBy   string // default SortSavedAt
	Order    string // default OrderDesc
}

// Filters lists the distinct values present in the catalog, sorted.
type Filters struct {
	Tags       []string `json:"tags"`
	Categories []string `json:"categories"`
	Uploaders  []string `json:"uploaders"`
}

// ListResult is a filtered, ordered view over the catalog.
type ListResult struct {
	Total   int      `json:"total_videos"`
	Entries []*Entry `json:"videos"`
	Filters Filters  `json:"available_filters"`
}

// Normalize fills defaults and rejects unknown sort keys or orders.
func (q Query) Normalize() (Query, error) {
	q.SortBy = strings.ToLower(strings.TrimSpace(q.SortBy))
	q.Order = strings.ToLower(strings.TrimSpace(q.Order))
	if q.SortBy == "" {
		q.SortBy = SortSavedAt
	}
	if q.Order == "" {
		q.Order = OrderDesc
	}

	switch q.SortBy {
	case SortSavedAt, SortTitle, SortViewCount, SortLikeCount, SortDuration:
	default:
		return q, fmt.Errorf("%w: sort_by %q", ErrInvalidQuery, q.SortBy)
	}
	if q.Order != OrderAsc && q.Order != OrderDesc {
		return q, fmt.Errorf("%w: order %q", ErrInvalidQuery, q.Order)
	}
	return q, nil
}

// List returns the entries matching q, ordered as requested. Ties keep catalog order.
func (s *Store) List(q Query) (*ListResult, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	entries, err := s.All()
	if err != nil {
		return nil, err
	}

	needle := fold(strings.TrimSpace(q.Search))
	matched := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if q.matches(e, needle) {
			matched = append(matched, e)
		}
	}

	sortEntries(matched, q.SortBy, q.Order == OrderDesc)

	return &ListResult{
		Total:   len(entries),
		Entries: matched,
		Filters: availableFilters(entries),
	}, nil
}

func (q Query) matches(e *Entry, needle string) bool {
	if q.Tag != "" && !e.HasTag(q.Tag) {
		return false
	}
	if q.Category != "" && e.Category != q.Category {
		return false
	}
	if q.Uploader != "" && e.Uploader != q.Uploader {
		return false
	}
	if needle == "" {
		return true
	}

	if strings.Contains(fold(e.Title), needle) || strings.Contains(fold(e.Description), needle) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(fold(tag), needle) {
			return true
		}
	}
	return false
}

// sortEntries orders entries in place. Missing numbers count as zero.
func sortEntries(entries []*Entry, by string, desc bool) {
	compare := func(a, b *Entry) int {
		switch by {
		case SortTitle:
			return cmp.Compare(fold(a.Title), fold(b.Title))
		case SortViewCount:
			return cmp.Compare(deref(a.ViewCount), deref(b.ViewCount))
		case SortLikeCount:
			return cmp.Compare(deref(a.LikeCount), deref(b.LikeCount))
		case SortDuration:
			return cmp.Compare(deref(a.Duration), deref(b.Duration))
		default:
			return a.SavedAt.Compare(b.SavedAt.Time)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		c := compare(entries[i], entries[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func deref[T int64 | float64](p *T) T {
	if p == nil {
		return 0
	}
	return *p
}

func availableFilters(entries []*Entry) Filters {
	var f Filters
	for _, e := range entries {
		f.Tags = append(f.Tags, e.Tags...)
		if e.Category != "" {
			f.Categories = append(f.Categories, e.Category)
		}
		if e.Uploader != "" {
			f.Uploaders = append(f.Uploaders, e.Uploader)
		}
	}
	return Filters{
		Tags:       sortedUnique(f.Tags),
		Categories: sortedUnique(f.Categories),
		Uploaders:  sortedUnique(f.Uploaders),
	}
}

func sortedUnique(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// fold lowercases and strips accents so "Café" matches "cafe".
func fold(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

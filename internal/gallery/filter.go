package gallery

import (
	"strings"

	"printshop/storefront/internal/domain"

	"golang.org/x/text/cases"
)

// Filter is the user's current selection. Zero values select everything.
type Filter struct {
	SearchTerm     string
	ActiveCategory string
	ActiveFormat   string
}

// Matches reports whether item satisfies every active predicate. It never mutates item.
func Matches(item domain.CatalogItem, f Filter) bool {
	return matchesCategory(item, f.ActiveCategory) &&
		matchesFormat(item, f.ActiveFormat) &&
		matchesSearch(item, f.SearchTerm)
}

func matchesCategory(item domain.CatalogItem, category string) bool {
	return category == "" || category == domain.AllCategories || item.CategoryKey == category
}

func matchesFormat(item domain.CatalogItem, format string) bool {
	return format == "" || format == domain.AllFormats || item.FormatKey == format
}

func matchesSearch(item domain.CatalogItem, term string) bool {
	if term == "" {
		return true
	}

	fold := cases.Fold()
	needle := fold.String(term)
	if strings.Contains(fold.String(item.Title), needle) ||
		strings.Contains(fold.String(item.Description), needle) {
		return true
	}
	for _, tag := range item.Tags {
		if strings.Contains(fold.String(tag), needle) {
			return true
		}
	}
	return false
}

// Apply returns the items matching f, in their original order.
func Apply(items []domain.CatalogItem, f Filter) []domain.CatalogItem {
	matched := make([]domain.CatalogItem, 0, len(items))
	for _, item := range items {
		if Matches(item, f) {
			matched = append(matched, item)
		}
	}
	return matched
}

// PageCount is the number of pages needed for n items; zero when n is zero.
func PageCount(n, pageSize int) int {
	if n <= 0 || pageSize <= 0 {
		return 0
	}
	return (n + pageSize - 1) / pageSize
}

// Paginate slices items to the 1-based page. Pages past the end are empty.
func Paginate(items []domain.CatalogItem, page, pageSize int) []domain.CatalogItem {
	if page < 1 || pageSize <= 0 {
		return []domain.CatalogItem{}
	}

	start := (page - 1) * pageSize
	if start >= len(items) {
		return []domain.CatalogItem{}
	}
	end := min(start+pageSize, len(items))

	out := make([]domain.CatalogItem, end-start)
	copy(out, items[start:end])
	return out
}

package gallery

import (
	"testing"

	"printshop/storefront/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	item := domain.CatalogItem{
		Title:       "Wedding Invitation",
		Description: "Elegant gold foil layout",
		CategoryKey: "invitations",
		FormatKey:   "PDF",
		Tags:        []string{"Floral", "Straße"},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"zero filter", Filter{}, true},
		{"sentinels", Filter{ActiveCategory: domain.AllCategories, ActiveFormat: domain.AllFormats}, true},
		{"category match", Filter{ActiveCategory: "invitations"}, true},
		{"category miss", Filter{ActiveCategory: "flyers"}, false},
		{"format miss", Filter{ActiveFormat: "PSD"}, false},
		{"title search", Filter{SearchTerm: "WEDDING"}, true},
		{"description search", Filter{SearchTerm: "gold FOIL"}, true},
		{"tag search", Filter{SearchTerm: "floral"}, true},
		{"folded tag search", Filter{SearchTerm: "STRASSE"}, true},
		{"search miss", Filter{SearchTerm: "birthday"}, false},
		{"all predicates", Filter{SearchTerm: "foil", ActiveCategory: "invitations", ActiveFormat: "PDF"}, true},
		{"one predicate fails", Filter{SearchTerm: "foil", ActiveCategory: "invitations", ActiveFormat: "AI"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(item, tt.filter))
		})
	}
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, PageCount(0, 12))
	assert.Equal(t, 1, PageCount(12, 12))
	assert.Equal(t, 3, PageCount(25, 12))
	assert.Equal(t, 0, PageCount(5, 0))
}

func TestPaginate(t *testing.T) {
	items := makeItems(5, "flyers")

	assert.Len(t, Paginate(items, 1, 2), 2)
	assert.Len(t, Paginate(items, 3, 2), 1)
	assert.Empty(t, Paginate(items, 4, 2))
	assert.Empty(t, Paginate(items, 0, 2))
	assert.NotNil(t, Paginate(nil, 1, 2))

	page := Paginate(items, 1, 2)
	page[0].Title = "changed"
	assert.NotEqual(t, "changed", items[0].Title)
}

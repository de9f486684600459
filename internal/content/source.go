package content

import (
	"context"

	"printshop/storefront/internal/domain"
)

// TemplateSource feeds the templates gallery.
type TemplateSource struct {
	fetcher *Fetcher
}

func NewTemplateSource(f *Fetcher) *TemplateSource {
	return &TemplateSource{fetcher: f}
}

func (s *TemplateSource) FetchItems(ctx context.Context) ([]domain.CatalogItem, error) {
	return s.fetcher.FetchTemplates(ctx)
}

func (s *TemplateSource) FetchFacets(ctx context.Context) ([]domain.CategoryFacet, error) {
	return s.fetcher.FetchTemplateCategories(ctx)
}

// ProductSource feeds the products grid, optionally narrowed server-side to one category.
type ProductSource struct {
	fetcher  *Fetcher
	category string
}

func NewProductSource(f *Fetcher, categorySlug string) *ProductSource {
	return &ProductSource{fetcher: f, category: categorySlug}
}

func (s *ProductSource) FetchItems(ctx context.Context) ([]domain.CatalogItem, error) {
	return s.fetcher.FetchProducts(ctx, s.category)
}

func (s *ProductSource) FetchFacets(ctx context.Context) ([]domain.CategoryFacet, error) {
	return s.fetcher.FetchProductCategories(ctx)
}

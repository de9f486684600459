package content

import (
	"context"
	"errors"
	"fmt"

	"printshop/storefront/internal/domain"

	log "github.com/sirupsen/logrus"
)

// ErrFetchFailure marks a transport or query failure, as opposed to an empty result.
var ErrFetchFailure = errors.New("content fetch failed")

type Querier interface {
	Query(ctx context.Context, query string, params map[string]any, out any) error
}

// Fetcher issues the storefront's catalog queries. Read access only.
type Fetcher struct {
	client Querier
}

func NewFetcher(client Querier) *Fetcher {
	return &Fetcher{client: client}
}

func (f *Fetcher) FetchTemplates(ctx context.Context) ([]domain.CatalogItem, error) {
	return f.fetchItems(ctx, "templates", templatesQuery, nil)
}

func (f *Fetcher) FetchTemplateCategories(ctx context.Context) ([]domain.CategoryFacet, error) {
	return f.fetchFacets(ctx, "template categories", templateCategoriesQuery)
}

// FetchProducts returns products in categorySlug, or all products when it is empty.
func (f *Fetcher) FetchProducts(ctx context.Context, categorySlug string) ([]domain.CatalogItem, error) {
	return f.fetchItems(ctx, "products", productsQuery, map[string]any{"category": categorySlug})
}

func (f *Fetcher) FetchProductCategories(ctx context.Context) ([]domain.CategoryFacet, error) {
	return f.fetchFacets(ctx, "product categories", productCategoriesQuery)
}

// FetchTemplate returns nil without error when no template has the given id.
func (f *Fetcher) FetchTemplate(ctx context.Context, id string) (*domain.CatalogItem, error) {
	var item *domain.CatalogItem
	if err := f.client.Query(ctx, templateByIDQuery, map[string]any{"id": id}, &item); err != nil {
		log.Errorf("❌ Failed to fetch template %s: %v", id, err)
		return nil, fmt.Errorf("%w: template %s: %v", ErrFetchFailure, id, err)
	}
	if item != nil {
		normalizeItem(item)
	}
	return item, nil
}

func (f *Fetcher) fetchItems(ctx context.Context, what, query string, params map[string]any) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	if err := f.client.Query(ctx, query, params, &items); err != nil {
		log.Errorf("❌ Failed to fetch %s: %v", what, err)
		return []domain.CatalogItem{}, fmt.Errorf("%w: %s: %v", ErrFetchFailure, what, err)
	}

	if items == nil {
		items = []domain.CatalogItem{}
	}
	for i := range items {
		normalizeItem(&items[i])
	}

	log.Debugf("Fetched %d %s", len(items), what)
	return items, nil
}

func (f *Fetcher) fetchFacets(ctx context.Context, what, query string) ([]domain.CategoryFacet, error) {
	var facets []domain.CategoryFacet
	if err := f.client.Query(ctx, query, nil, &facets); err != nil {
		log.Errorf("❌ Failed to fetch %s: %v", what, err)
		return []domain.CategoryFacet{}, fmt.Errorf("%w: %s: %v", ErrFetchFailure, what, err)
	}

	if facets == nil {
		facets = []domain.CategoryFacet{}
	}

	log.Debugf("Fetched %d %s", len(facets), what)
	return facets, nil
}

func normalizeItem(item *domain.CatalogItem) {
	item.Description = PlainText(item.Description)
	if item.Tags == nil {
		item.Tags = []string{}
	}
}

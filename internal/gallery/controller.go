package gallery

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"printshop/storefront/internal/domain"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var ErrDisposed = errors.New("gallery controller disposed")

// Source supplies the catalog a controller browses.
type Source interface {
	FetchItems(ctx context.Context) ([]domain.CatalogItem, error)
	FetchFacets(ctx context.Context) ([]domain.CategoryFacet, error)
}

// DownloadRecorder issues the remote download increment for one item.
type DownloadRecorder interface {
	RecordDownload(ctx context.Context, itemID string) error
}

type Status int

const (
	StatusLoading Status = iota
	StatusReady
)

func (s Status) String() string {
	if s == StatusReady {
		return "ready"
	}
	return "loading"
}

type Options struct {
	PageSize         int
	IncrementTimeout time.Duration
}

// View is the derived, paginated state handed to presentation.
type View struct {
	Items        []domain.CatalogItem
	Filter       Filter
	CurrentPage  int
	PageCount    int
	TotalMatches int
	Status       Status
}

// Controller holds one page-view's catalog and filter state.
type Controller struct {
	source   Source
	recorder DownloadRecorder
	opts     Options

	mu          sync.Mutex
	allItems    []domain.CatalogItem
	facets      []domain.CategoryFacet
	filter      Filter
	currentPage int
	status      Status
	loadGen     uint64
	loadedOnce  bool
	disposed    bool

	inflight sync.WaitGroup
}

func NewController(source Source, recorder DownloadRecorder, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = 12
	}
	if opts.IncrementTimeout <= 0 {
		opts.IncrementTimeout = 10 * time.Second
	}

	return &Controller{
		source:   source,
		recorder: recorder,
		opts:     opts,
		filter: Filter{
			ActiveCategory: domain.AllCategories,
			ActiveFormat:   domain.AllFormats,
		},
		currentPage: 1,
		status:      StatusLoading,
	}
}

// Load fetches items and facets. On the first load, when both come back empty the
// fetch is repeated exactly once before the controller settles into Ready.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.loadGen++
	gen := c.loadGen
	firstLoad := !c.loadedOnce
	c.status = StatusLoading
	c.mu.Unlock()

	items, facets := c.fetch(ctx)
	if firstLoad && len(items) == 0 && len(facets) == 0 {
		log.Warnf("🔄 Catalog and categories both empty, refetching once")
		items, facets = c.fetch(ctx)
		if len(items) == 0 && len(facets) == 0 {
			log.Warnf("Catalog still empty after refetch, showing empty state")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		log.Debugf("Discarding catalog load for disposed controller")
		return ErrDisposed
	}
	if gen != c.loadGen {
		log.Debugf("Discarding superseded catalog load %d", gen)
		return nil
	}

	c.allItems = slices.Clone(items)
	c.facets = facets
	c.status = StatusReady
	c.loadedOnce = true

	log.Debugf("Catalog ready with %d items and %d categories", len(items), len(facets))
	return nil
}

// fetch loads both collections concurrently. Failures were already logged by the
// source and count as empty here.
func (c *Controller) fetch(ctx context.Context) ([]domain.CatalogItem, []domain.CategoryFacet) {
	var (
		items  []domain.CatalogItem
		facets []domain.CategoryFacet
		g      errgroup.Group
	)

	g.Go(func() error {
		fetched, err := c.source.FetchItems(ctx)
		if err != nil {
			log.Warnf("Treating failed catalog fetch as empty: %v", err)
			return nil
		}
		items = fetched
		return nil
	})
	g.Go(func() error {
		fetched, err := c.source.FetchFacets(ctx)
		if err != nil {
			log.Warnf("Treating failed category fetch as empty: %v", err)
			return nil
		}
		facets = fetched
		return nil
	})
	_ = g.Wait()

	return items, facets
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SetSearchTerm keeps the current page.
func (c *Controller) SetSearchTerm(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.SearchTerm = term
}

func (c *Controller) SetActiveCategory(key string) {
	if key == "" {
		key = domain.AllCategories
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.ActiveCategory = key
	c.currentPage = 1
}

func (c *Controller) SetActiveFormat(key string) {
	if key == "" {
		key = domain.AllFormats
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.ActiveFormat = key
	c.currentPage = 1
}

func (c *Controller) SetPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentPage = max(page, 1)
}

func (c *Controller) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPage
}

func (c *Controller) Derive() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	matched := Apply(c.allItems, c.filter)
	return View{
		Items:        Paginate(matched, c.currentPage, c.opts.PageSize),
		Filter:       c.filter,
		CurrentPage:  c.currentPage,
		PageCount:    PageCount(len(matched), c.opts.PageSize),
		TotalMatches: len(matched),
		Status:       c.status,
	}
}

// Item returns a copy of the item with the given id.
func (c *Controller) Item(id string) (domain.CatalogItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range c.allItems {
		if item.ID == id {
			return item, true
		}
	}
	return domain.CatalogItem{}, false
}

// Categories returns the facets ordered by SortOrder, ties by key.
func (c *Controller) Categories() []domain.CategoryFacet {
	c.mu.Lock()
	facets := slices.Clone(c.facets)
	c.mu.Unlock()

	sort.SliceStable(facets, func(i, j int) bool {
		if facets[i].SortOrder != facets[j].SortOrder {
			return facets[i].SortOrder < facets[j].SortOrder
		}
		return facets[i].Key < facets[j].Key
	})
	return facets
}

// Formats lists the distinct non-empty format keys present in the catalog.
func (c *Controller) Formats() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{})
	formats := make([]string, 0)
	for _, item := range c.allItems {
		if item.FormatKey == "" {
			continue
		}
		if _, ok := seen[item.FormatKey]; ok {
			continue
		}
		seen[item.FormatKey] = struct{}{}
		formats = append(formats, item.FormatKey)
	}
	sort.Strings(formats)
	return formats
}

// RecordDownload bumps the local count of itemID by one and fires the remote
// increment without waiting for it. The local bump is never rolled back.
// Unknown ids are a no-op and issue no remote call.
func (c *Controller) RecordDownload(itemID string) (domain.CatalogItem, bool) {
	c.mu.Lock()
	idx := slices.IndexFunc(c.allItems, func(item domain.CatalogItem) bool { return item.ID == itemID })
	if idx < 0 {
		c.mu.Unlock()
		log.Debugf("Ignoring download for unknown item %s", itemID)
		return domain.CatalogItem{}, false
	}
	c.allItems[idx].DownloadCount++
	updated := c.allItems[idx]
	if c.recorder == nil {
		c.mu.Unlock()
		log.Warnf("No download recorder configured, %s counted locally only", itemID)
		return updated, true
	}
	c.inflight.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.opts.IncrementTimeout)
		defer cancel()

		if err := c.recorder.RecordDownload(ctx, itemID); err != nil {
			log.Errorf("❌ Failed to record download for %s, local count kept: %v", itemID, err)
		}
	}()

	return updated, true
}

// Close disposes the controller; a load still in flight discards its result.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
}

// Wait blocks until every remote increment started so far has settled.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

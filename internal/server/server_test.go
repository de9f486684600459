package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"printshop/storefront/internal/config"
	"printshop/storefront/internal/domain"
	"printshop/storefront/internal/forms"
	"printshop/storefront/internal/gallery"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	items  []domain.CatalogItem
	facets []domain.CategoryFacet
}

func (s stubSource) FetchItems(ctx context.Context) ([]domain.CatalogItem, error) {
	return s.items, nil
}

func (s stubSource) FetchFacets(ctx context.Context) ([]domain.CategoryFacet, error) {
	return s.facets, nil
}

type stubRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *stubRecorder) RecordDownload(ctx context.Context, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, itemID)
	return nil
}

func (r *stubRecorder) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

type stubForms struct {
	target string
	got    url.Values
	err    error
}

func (f *stubForms) Submit(ctx context.Context, target string, values url.Values) (*domain.FormSubmission, error) {
	f.target = target
	f.got = values
	if f.err != nil {
		return nil, f.err
	}
	return &domain.FormSubmission{FormName: values.Get("form-name")}, nil
}

func templates(n int) []domain.CatalogItem {
	items := make([]domain.CatalogItem, n)
	for i := range items {
		category := "flyers"
		if i%2 == 1 {
			category = "business-cards"
		}
		items[i] = domain.CatalogItem{
			ID:               fmt.Sprintf("t-%d", i),
			Title:            fmt.Sprintf("Template %d", i),
			CategoryKey:      category,
			FormatKey:        "PDF",
			Tags:             []string{"print"},
			DownloadCount:    i,
			DownloadAssetRef: fmt.Sprintf("https://cdn.example.com/files/t-%d.pdf", i),
		}
	}
	return items
}

var facets = []domain.CategoryFacet{
	{Key: "flyers", DisplayName: "Flyers", SortOrder: 2},
	{Key: "business-cards", DisplayName: "Business Cards", SortOrder: 1},
}

type harness struct {
	server          *Server
	recorder        *stubRecorder
	forms           *stubForms
	productCategory string
}

func newHarness(t *testing.T, items []domain.CatalogItem) *harness {
	t.Helper()
	h := &harness{recorder: &stubRecorder{}, forms: &stubForms{}}
	cfg := &config.Config{
		Gallery: config.GalleryConfig{PageSize: 12, IncrementTimeout: 1},
		Forms:   config.FormsConfig{SuccessPath: "/thank-you"},
	}
	h.server = New(cfg, Deps{
		Templates: stubSource{items: items, facets: facets},
		Products: func(category string) gallery.Source {
			h.productCategory = category
			price := 1250
			return stubSource{
				items:  []domain.CatalogItem{{ID: "p-1", Title: "Vinyl Banner", CategoryKey: "banners", PriceCents: &price}},
				facets: []domain.CategoryFacet{{Key: "banners", DisplayName: "Banners"}},
			}
		},
		Recorder: h.recorder,
		Forms:    h.forms,
	})
	return h
}

func (h *harness) do(t *testing.T, method, target string, body url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}

func cardIDs(doc *goquery.Document) []string {
	var ids []string
	doc.Find("article.card").Each(func(_ int, s *goquery.Selection) {
		ids = append(ids, s.AttrOr("data-id", ""))
	})
	return ids
}

func TestPing(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestTemplates_FirstPage(t *testing.T) {
	h := newHarness(t, templates(25))
	rec := h.do(t, http.MethodGet, "/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parse(t, rec)
	assert.Len(t, cardIDs(doc), 12)
	assert.Equal(t, "1", doc.Find(`.pagination [aria-current="page"]`).Text())
	assert.Equal(t, 2, doc.Find(".pagination a:not([rel])").Length())

	tabs := doc.Find(".category-tabs a").Map(func(_ int, s *goquery.Selection) string { return s.Text() })
	assert.Equal(t, []string{"All", "Business Cards", "Flyers"}, tabs)
	assert.Equal(t, "all", doc.Find(".category-tabs a.active").AttrOr("data-category", ""))
}

func TestTemplates_LastPageHasRemainder(t *testing.T) {
	h := newHarness(t, templates(25))
	doc := parse(t, h.do(t, http.MethodGet, "/templates?page=3", nil))

	assert.Equal(t, []string{"t-24"}, cardIDs(doc))
	assert.Zero(t, doc.Find(`.pagination a[rel="next"]`).Length())
	assert.Equal(t, 1, doc.Find(`.pagination a[rel="prev"]`).Length())
}

func TestTemplates_CategoryAndSearch(t *testing.T) {
	items := templates(6)
	items[3].Tags = []string{"Glossy"}
	h := newHarness(t, items)

	doc := parse(t, h.do(t, http.MethodGet, "/templates?category=business-cards", nil))
	assert.Equal(t, []string{"t-1", "t-3", "t-5"}, cardIDs(doc))
	assert.Equal(t, "business-cards", doc.Find(".category-tabs a.active").AttrOr("data-category", ""))

	doc = parse(t, h.do(t, http.MethodGet, "/templates?q=glossy", nil))
	assert.Equal(t, []string{"t-3"}, cardIDs(doc))
	assert.Equal(t, "glossy", doc.Find(`input[name="q"]`).AttrOr("value", ""))
}

func TestTemplates_EmptyState(t *testing.T) {
	h := newHarness(t, templates(3))
	doc := parse(t, h.do(t, http.MethodGet, "/templates?format=PSD", nil))

	assert.Empty(t, cardIDs(doc))
	assert.Contains(t, doc.Find(".empty-state").Text(), "No templates match")
	assert.Zero(t, doc.Find(".pagination").Length())
}

func TestTemplates_EscapesContent(t *testing.T) {
	items := templates(1)
	items[0].Title = `<script>alert("x")</script>`
	h := newHarness(t, items)

	rec := h.do(t, http.MethodGet, "/templates", nil)
	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Equal(t, items[0].Title, parse(t, rec).Find("article.card h2").Text())
}

func TestTemplates_UnsafePreviewURLSanitized(t *testing.T) {
	items := templates(1)
	items[0].PreviewAssetRef = "javascript:alert(1)"
	h := newHarness(t, items)

	doc := parse(t, h.do(t, http.MethodGet, "/templates", nil))
	assert.Equal(t, "#ZgotmplZ", doc.Find("article.card img").AttrOr("src", ""))
}

func TestTemplates_DownloadActionEscapesID(t *testing.T) {
	items := templates(1)
	items[0].ID = "a b/c"
	h := newHarness(t, items)

	doc := parse(t, h.do(t, http.MethodGet, "/templates", nil))
	assert.Equal(t, "/templates/a%20b%2Fc/download", doc.Find("article.card form").AttrOr("action", ""))
}

type blockingRecorder struct {
	release chan struct{}
}

func (r blockingRecorder) RecordDownload(ctx context.Context, itemID string) error {
	<-r.release
	return nil
}

func TestServerWaitDrainsDownloads(t *testing.T) {
	recorder := blockingRecorder{release: make(chan struct{})}
	s := New(&config.Config{Gallery: config.GalleryConfig{PageSize: 12, IncrementTimeout: 5}}, Deps{
		Templates: stubSource{items: templates(2), facets: facets},
		Recorder:  recorder,
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/templates/t-1/download", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned while a download was still being recorded")
	case <-time.After(50 * time.Millisecond):
	}

	close(recorder.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the download was recorded")
	}
}

func TestDownload_RedirectsAndRecords(t *testing.T) {
	h := newHarness(t, templates(5))
	rec := h.do(t, http.MethodPost, "/templates/t-3/download", nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://cdn.example.com/files/t-3.pdf", rec.Header().Get("Location"))
	assert.Eventually(t, func() bool {
		ids := h.recorder.IDs()
		return len(ids) == 1 && ids[0] == "t-3"
	}, time.Second, 5*time.Millisecond)
}

func TestDownload_UnknownItem(t *testing.T) {
	h := newHarness(t, templates(5))
	rec := h.do(t, http.MethodPost, "/templates/nope/download", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, h.recorder.IDs())
}

func TestProducts_NarrowedByCategory(t *testing.T) {
	h := newHarness(t, nil)
	doc := parse(t, h.do(t, http.MethodGet, "/products?category=banners", nil))

	assert.Equal(t, "banners", h.productCategory)
	assert.Equal(t, []string{"p-1"}, cardIDs(doc))
	assert.Equal(t, "$12.50", doc.Find("article.card .price").Text())
	assert.Zero(t, doc.Find("article.card form").Length())
}

func TestContactPage(t *testing.T) {
	h := newHarness(t, nil)
	doc := parse(t, h.do(t, http.MethodGet, "/contact", nil))

	assert.Equal(t, "/forms/contact", doc.Find("form").AttrOr("action", ""))
	assert.Equal(t, "contact", doc.Find(`input[name="form-name"]`).AttrOr("value", ""))
	assert.Equal(t, 1, doc.Find(`input[name="bot-field"]`).Length())
}

func TestFormSubmission(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{name: "stored", wantStatus: http.StatusSeeOther},
		{name: "missing form name", err: forms.ErrMissingFormName, wantStatus: http.StatusBadRequest, wantError: "missing its name"},
		{name: "form name mismatch", err: forms.ErrFormNameMismatch, wantStatus: http.StatusBadRequest, wantError: "wrong address"},
		{name: "storage failure", err: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantError: "went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.forms.err = tt.err

			body := url.Values{"form-name": {"contact"}, "email": {"ana@example.com"}}
			rec := h.do(t, http.MethodPost, "/forms/contact", body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "contact", h.forms.target)
			assert.Equal(t, "ana@example.com", h.forms.got.Get("email"))
			if tt.wantError == "" {
				assert.Equal(t, "/thank-you", rec.Header().Get("Location"))
				return
			}
			doc := parse(t, rec)
			assert.Contains(t, doc.Find(".form-error").Text(), tt.wantError)
			assert.Equal(t, "ana@example.com", doc.Find(`input[name="email"]`).AttrOr("value", ""))
		})
	}
}

func TestPriceLabel(t *testing.T) {
	cents := func(n int) *int { return &n }
	assert.Equal(t, "", PriceLabel(nil))
	assert.Equal(t, "$0.00", PriceLabel(cents(0)))
	assert.Equal(t, "$0.99", PriceLabel(cents(99)))
	assert.Equal(t, "$1250.00", PriceLabel(cents(125000)))
}

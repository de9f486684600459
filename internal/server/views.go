package server

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"

	"printshop/storefront/internal/domain"
	"printshop/storefront/internal/gallery"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"priceLabel": PriceLabel,
	"downloadURL": func(path, id string) string {
		return path + "/" + url.PathEscape(id) + "/download"
	},
	"formURL": func(form string) string {
		return "/forms/" + url.PathEscape(form)
	},
}

var pages = map[string]*template.Template{
	"gallery":   parsePage("gallery.html"),
	"contact":   parsePage("contact.html"),
	"thank_you": parsePage("thank_you.html"),
}

func parsePage(name string) *template.Template {
	return template.Must(template.New(name).Funcs(templateFuncs).
		ParseFS(templateFS, "templates/layout.html", "templates/"+name))
}

// pageComponent executes the page into a buffer and writes it only on success.
func pageComponent(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
			return fmt.Errorf("failed to render %s page: %w", name, err)
		}
		_, err := buf.WriteTo(w)
		return err
	})
}

// GalleryPageData is everything the catalog page renders.
type GalleryPageData struct {
	Title      string
	Path       string
	Noun       string
	View       gallery.View
	Categories []domain.CategoryFacet
	Formats    []string
	// Downloadable renders a download button per item.
	Downloadable bool
}

type ContactPageData struct {
	FormName string
	Error    string
	Values   map[string]string
}

type tabLink struct {
	Key    string
	Label  string
	Href   string
	Active bool
}

type formatOption struct {
	Value    string
	Selected bool
}

type pageLink struct {
	Number  int
	Href    string
	Current bool
}

type galleryView struct {
	GalleryPageData
	Loading       bool
	Tabs          []tabLink
	FormatOptions []formatOption
	Pages         []pageLink
	PrevHref      string
	NextHref      string
}

func GalleryPage(data GalleryPageData) templ.Component {
	view := data.View
	f := view.Filter

	gv := galleryView{
		GalleryPageData: data,
		Loading:         view.Status == gallery.StatusLoading,
	}

	tabs := append([]domain.CategoryFacet{{Key: domain.AllCategories, DisplayName: "All"}}, data.Categories...)
	for _, tab := range tabs {
		gv.Tabs = append(gv.Tabs, tabLink{
			Key:   tab.Key,
			Label: tab.DisplayName,
			Href: pageURL(data.Path, gallery.Filter{
				SearchTerm:     f.SearchTerm,
				ActiveCategory: tab.Key,
				ActiveFormat:   f.ActiveFormat,
			}, 1),
			Active: tab.Key == f.ActiveCategory,
		})
	}

	if len(data.Formats) > 0 {
		for _, format := range append([]string{domain.AllFormats}, data.Formats...) {
			gv.FormatOptions = append(gv.FormatOptions, formatOption{Value: format, Selected: format == f.ActiveFormat})
		}
	}

	if view.PageCount > 1 {
		for p := 1; p <= view.PageCount; p++ {
			gv.Pages = append(gv.Pages, pageLink{
				Number:  p,
				Href:    pageURL(data.Path, f, p),
				Current: p == view.CurrentPage,
			})
		}
		if view.CurrentPage > 1 {
			gv.PrevHref = pageURL(data.Path, f, view.CurrentPage-1)
		}
		if view.CurrentPage < view.PageCount {
			gv.NextHref = pageURL(data.Path, f, view.CurrentPage+1)
		}
	}

	return pageComponent("gallery", gv)
}

func ContactPage(data ContactPageData) templ.Component {
	return pageComponent("contact", data)
}

func ThankYouPage() templ.Component {
	return pageComponent("thank_you", nil)
}

// pageURL links to the catalog with f applied, omitting defaults.
func pageURL(path string, f gallery.Filter, page int) string {
	q := url.Values{}
	if f.SearchTerm != "" {
		q.Set("q", f.SearchTerm)
	}
	if f.ActiveCategory != "" && f.ActiveCategory != domain.AllCategories {
		q.Set("category", f.ActiveCategory)
	}
	if f.ActiveFormat != "" && f.ActiveFormat != domain.AllFormats {
		q.Set("format", f.ActiveFormat)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// PriceLabel formats cents as dollars, or "" when the item has no price.
func PriceLabel(cents *int) string {
	if cents == nil {
		return ""
	}
	return "$" + decimal.NewFromInt(int64(*cents)).Shift(-2).StringFixed(2)
}

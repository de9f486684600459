package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"printshop/storefront/internal/forms"
	"printshop/storefront/internal/gallery"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

func (s *Server) controller(source gallery.Source, r *http.Request) (*gallery.Controller, error) {
	c := gallery.NewController(source, s.deps.Recorder, gallery.Options{
		PageSize:         s.cfg.Gallery.PageSize,
		IncrementTimeout: s.cfg.Gallery.IncrementTimeoutDuration(),
	})
	if err := c.Load(r.Context()); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// applyQuery sets filters before the page, since filter changes reset it.
func applyQuery(c *gallery.Controller, r *http.Request) {
	q := r.URL.Query()
	c.SetActiveCategory(q.Get("category"))
	c.SetActiveFormat(q.Get("format"))
	c.SetSearchTerm(strings.TrimSpace(q.Get("q")))
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		c.SetPage(page)
	}
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	c, err := s.controller(s.deps.Templates, r)
	if err != nil {
		log.Errorf("❌ Failed to load templates: %v", err)
		http.Error(w, "catalog unavailable", http.StatusServiceUnavailable)
		return
	}
	defer c.Close()
	applyQuery(c, r)

	s.render(w, r, http.StatusOK, GalleryPage(GalleryPageData{
		Title:        "Templates",
		Path:         "/templates",
		Noun:         "templates",
		View:         c.Derive(),
		Categories:   c.Categories(),
		Formats:      c.Formats(),
		Downloadable: true,
	}))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := s.controller(s.deps.Templates, r)
	if err != nil {
		log.Errorf("❌ Failed to load templates: %v", err)
		http.Error(w, "catalog unavailable", http.StatusServiceUnavailable)
		return
	}
	defer c.Close()

	item, ok := c.RecordDownload(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.downloads.Add(1)
	go func() {
		defer s.downloads.Done()
		c.Wait()
	}()

	target := item.DownloadAssetRef
	if target == "" {
		log.Warnf("Template %s has no download asset", id)
		target = "/templates"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	c, err := s.controller(s.deps.Products(category), r)
	if err != nil {
		log.Errorf("❌ Failed to load products: %v", err)
		http.Error(w, "catalog unavailable", http.StatusServiceUnavailable)
		return
	}
	defer c.Close()
	applyQuery(c, r)

	s.render(w, r, http.StatusOK, GalleryPage(GalleryPageData{
		Title:      "Products",
		Path:       "/products",
		Noun:       "products",
		View:       c.Derive(),
		Categories: c.Categories(),
	}))
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, ContactPage(ContactPageData{FormName: "contact"}))
}

func (s *Server) handleThankYou(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, ThankYouPage())
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	formName := chi.URLParam(r, "form")

	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, ContactPage(ContactPageData{
			FormName: formName,
			Error:    "We could not read your submission. Please try again.",
		}))
		return
	}

	_, err := s.deps.Forms.Submit(r.Context(), formName, r.PostForm)
	if err != nil {
		status, message := http.StatusInternalServerError, "Something went wrong sending your message. Please try again."
		switch {
		case errors.Is(err, forms.ErrMissingFormName):
			status, message = http.StatusBadRequest, "This form is missing its name. Please reload the page and try again."
		case errors.Is(err, forms.ErrFormNameMismatch):
			status, message = http.StatusBadRequest, "This form was posted to the wrong address. Please reload the page and try again."
		default:
			log.Errorf("❌ Failed to handle %s submission: %v", formName, err)
		}

		values := make(map[string]string, len(r.PostForm))
		for key := range r.PostForm {
			values[key] = r.PostForm.Get(key)
		}
		s.render(w, r, status, ContactPage(ContactPageData{
			FormName: formName,
			Error:    message,
			Values:   values,
		}))
		return
	}

	http.Redirect(w, r, s.cfg.Forms.SuccessPath, http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, component templ.Component) {
	templ.Handler(component, templ.WithStatus(status)).ServeHTTP(w, r)
}

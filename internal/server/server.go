package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"printshop/storefront/internal/config"
	"printshop/storefront/internal/domain"
	"printshop/storefront/internal/gallery"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// FormSubmitter stores a form posted to formName; a nil submission means it
// was dropped.
type FormSubmitter interface {
	Submit(ctx context.Context, formName string, values url.Values) (*domain.FormSubmission, error)
}

// Deps are the collaborators the HTTP handlers call into.
type Deps struct {
	Templates gallery.Source
	Products  func(categorySlug string) gallery.Source
	Recorder  gallery.DownloadRecorder
	Forms     FormSubmitter
}

type Server struct {
	cfg    *config.Config
	deps   Deps
	router chi.Router

	// downloads tracks controllers still recording download increments.
	downloads sync.WaitGroup
}

func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("pong"))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/templates", http.StatusFound)
	})
	r.Get("/templates", s.handleTemplates)
	r.Post("/templates/{id}/download", s.handleDownload)
	r.Get("/products", s.handleProducts)
	r.Get("/contact", s.handleContact)
	r.Post("/forms/{form}", s.handleForm)
	r.Get("/thank-you", s.handleThankYou)

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("🌐 Storefront listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("🛑 Shutting down http server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(s.cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.Wait()
	if err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// Wait blocks until every download increment started by a request is done.
func (s *Server) Wait() {
	s.downloads.Wait()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).Round(time.Millisecond),
		}).Info("http request")
	})
}

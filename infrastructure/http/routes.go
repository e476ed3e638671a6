package http

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"packdash/frontend/embalagem"
	"packdash/frontend/home"

	"github.com/go-chi/chi/v5"
)

// RegisterPageRoutes registers the HTML pages.
func (s *Server) RegisterPageRoutes() {
	s.router.Get("/", home.IndexPageQueryHandler())
	s.router.Get("/embalagem", embalagem.EmbalagemPageQueryHandler())
	s.router.Get("/shelf-life", home.ShelfLifePageQueryHandler())
	s.router.Get("/configuracoes", home.SettingsPageQueryHandler(s.Settings))
}

// RegisterEmbalagemRoutes registers the embalagem JSON API under r.
func (s *Server) RegisterEmbalagemRoutes(r chi.Router) {
	var observer embalagem.ExportObserver
	if s.Metrics != nil {
		observer = s.Metrics
	}

	r.Route("/embalagem", func(r chi.Router) {
		r.Get("/stats", embalagem.StatsQueryHandler(s.Repo, s.Stats))
		r.Post("/upload", embalagem.UploadCommandHandler(s.Ingest, s.Stats, s.MaxUploadBytes))
		r.Get("/uploads", embalagem.UploadsQueryHandler(s.Repo))
		r.Get("/data", embalagem.DataQueryHandler(s.Repo))

		r.Get("/record/{id}", embalagem.RecordQueryHandler(s.Repo))
		r.Post("/record/{id}/status", embalagem.UpdateStatusCommandHandler(s.Repo, s.Stats))
		r.Get("/record/{id}/barcode.png", embalagem.BarcodeQueryHandler(s.Repo))
		r.Get("/remessa/{remessa}/labels.pdf", embalagem.RemessaLabelsQueryHandler(s.Repo, time.Now))

		r.Get("/export", embalagem.ExportQueryHandler(s.Exporter, observer))
		r.Post("/export-custom", embalagem.ExportCustomCommandHandler(s.Exporter, observer))
	})
}

// RegisterExportFileRoutes serves generated export files as downloads.
func (s *Server) RegisterExportFileRoutes() {
	if s.Exporter == nil {
		return
	}
	files := http.StripPrefix("/exports/", http.FileServer(http.Dir(s.Exporter.Dir)))
	s.router.Get("/exports/*", func(w http.ResponseWriter, r *http.Request) {
		rel := chi.URLParam(r, "*")
		if rel == "" || strings.HasSuffix(rel, "/") {
			http.NotFound(w, r)
			return
		}
		// Only regular files are served; no directory listings.
		info, err := os.Stat(filepath.Join(s.Exporter.Dir, filepath.FromSlash(path.Clean("/"+rel))))
		if err != nil || !info.Mode().IsRegular() {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(rel)+`"`)
		files.ServeHTTP(w, r)
	})
}

func (s *Server) RegisterMetricsRoutes() {
	if s.Metrics == nil {
		return
	}
	s.router.Handle("/metrics", s.Metrics.Handler())
}

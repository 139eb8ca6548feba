package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ethpandaops/itsbench/pkg/processing"
)

// buildRouter constructs the chi router with all routes and middleware.
func (s *server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.corsMiddleware())

	r.Handle("/metrics", promhttp.HandlerFor(
		s.metrics.Registry, promhttp.HandlerOpts{},
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints.
		r.Get("/health", s.handleHealth)

		// Read endpoints, newest first.
		r.Get("/runs", s.handleListRuns)
		r.Get("/performance", s.handleListPerformance)
		r.Get("/app-details", s.handleListAppDetails)
		r.Get("/system-info", s.handleListSystemInfo)
		r.Get("/libraries", s.handleListLibraries)
		r.Get("/gpus", s.handleListGPUs)
		r.Get("/run-details", s.handleListRunDetails)
		r.Get("/model-maps", s.handleListModelMaps)

		// Admin endpoints.
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)

			if s.cfg.Server.RateLimit.Enabled {
				r.Use(s.rateLimitMiddleware(
					s.cfg.Server.RateLimit.RequestsPerMinute,
				))
			}

			r.Post("/save-data", s.handleSaveData)
			r.Get("/sources", s.handleListSources)
			r.Post("/sources/{name}/ingest", s.handleIngestSource)

			r.Post("/process-its", s.handleProcess(processing.TablePerformance))
			r.Post("/process-app-details", s.handleProcess(processing.TableAppDetails))
			r.Post("/process-system-info", s.handleProcess(processing.TableSystemInfo))
			r.Post("/process-libraries", s.handleProcess(processing.TableLibraries))
			r.Post("/process-gpu", s.handleProcess(processing.TableGPU))
			r.Post("/process-run-details", s.handleProcess(processing.TableRunDetails))
			r.Post("/process-all", s.handleProcessAll)

			r.Post("/update-gpu-brands", s.handleUpdateGPUBrands)
			r.Post("/update-gpu-laptop-info", s.handleUpdateGPULaptopInfo)
			r.Post("/update-run-more-details", s.handleUpdateRunMoreDetails)

			r.Get("/app-details-analysis", s.handleAppDetailsAnalysis)
			r.Post("/fix-app-names", s.handleFixAppNames)
		})
	})

	return r
}

// corsMiddleware returns a CORS handler configured from the server config.
func (s *server) corsMiddleware() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}

	origins := s.cfg.Server.CORSOrigins

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowedOrigins = origins
		opts.AllowCredentials = true
	}

	return cors.Handler(opts)
}

package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the chi route tree.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&logFormatter{logger: s.logger}))
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Post("/signup", s.signup)
	r.Post("/signin", s.signin)
	r.Post("/signin/new_token", s.refreshToken)
	r.Post("/logout", s.logout)
	r.Get("/logout", s.logout)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/info", s.info)

		r.Route("/file", func(r chi.Router) {
			r.Post("/upload", s.uploadFile)
			r.Get("/list", s.listFiles)
			r.Get("/{id}", s.getFile)
			r.Get("/download/{id}", s.downloadFile)
			r.Put("/update/{id}", s.updateFile)
			r.Delete("/delete/{id}", s.deleteFile)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

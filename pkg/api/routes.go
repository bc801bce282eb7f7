package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes registers all endpoints on the given router, including the
// plain-text 404 and 405 fallbacks.
func Routes(r chi.Router, h *Handle) {
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("404: NOT FOUND"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte("405: METHOD NOT ALLOWED"))
	})

	r.Get("/", h.Index)
	r.Get("/healthz", h.Healthz)
	r.Get("/.well-known/jwks.json", h.GetJWKS)
	r.Post("/auth", h.Auth)
	r.Get("/create-key-pair", h.CreateKeyPair)
	r.Post("/register", h.Register)
}

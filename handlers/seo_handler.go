package handlers

import (
	"io"
	"net/http"

	"github.com/Dosada05/valorant-arena/services"
)

type SEOHandler struct {
	seoService services.SEOService
}

func NewSEOHandler(s services.SEOService) *SEOHandler {
	return &SEOHandler{seoService: s}
}

func (h *SEOHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	body, err := h.seoService.Sitemap(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *SEOHandler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, h.seoService.Robots())
}

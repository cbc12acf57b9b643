package gateway

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DeBrosOfficial/wavechat/pkg/httputil"
)

type putContentResponse struct {
	Ref  string `json:"ref"`
	Size int    `json:"size"`
}

// putContentHandler stores the raw request body. The optional ?name= is passed
// to the backend as a filename hint.
func (g *Gateway) putContentHandler(w http.ResponseWriter, r *http.Request) {
	data, err := httputil.ReadBody(r, g.cfg.MaxBodyBytes)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	ref, err := g.content.Put(r.Context(), data, httputil.QueryParam(r, "name", "payload"))
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, putContentResponse{Ref: ref, Size: len(data)})
}

func (g *Gateway) getContentHandler(w http.ResponseWriter, r *http.Request) {
	data, err := g.content.Get(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	// Refs name immutable payloads.
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

package gateway

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/DeBrosOfficial/wavechat/pkg/httputil"
)

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// healthHandler reports liveness plus the ledger version and every
// configured dependency check. Any failed check makes the response 503.
func (g *Gateway) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK

	if v, err := g.ledger.Version(ctx); err == nil {
		resp.Version = v
	} else {
		resp.Checks["ledger"] = err.Error()
		resp.Status, status = "degraded", http.StatusServiceUnavailable
	}

	names := make([]string, 0, len(g.checks))
	for name := range g.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := g.checks[name](ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status, status = "degraded", http.StatusServiceUnavailable
		} else {
			resp.Checks[name] = "ok"
		}
	}

	httputil.WriteJSON(w, status, resp)
}

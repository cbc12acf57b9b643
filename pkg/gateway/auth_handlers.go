package gateway

import (
	"net/http"

	"github.com/DeBrosOfficial/wavechat/pkg/httputil"
)

type challengeRequest struct {
	Wallet string `json:"wallet"`
}

type verifyRequest struct {
	Wallet    string `json:"wallet"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

func (g *Gateway) challengeHandler(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := httputil.DecodeJSONStrict(r, g.cfg.MaxBodyBytes, &req); err != nil {
		g.writeError(w, r, err)
		return
	}
	c, err := g.auth.CreateChallenge(r.Context(), req.Wallet)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (g *Gateway) verifyHandler(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httputil.DecodeJSONStrict(r, g.cfg.MaxBodyBytes, &req); err != nil {
		g.writeError(w, r, err)
		return
	}
	sess, err := g.auth.Verify(r.Context(), req.Wallet, req.Nonce, req.Signature)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}

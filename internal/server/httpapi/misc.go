package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/folio/internal/common"
)

const healthTimeout = 2 * time.Second

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.deps.DB == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no database"))
		return
	}
	if err := h.deps.DB.PingContext(ctx); err != nil {
		h.logger.Warn(ctx, "health check failed", "err", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	_, _ = w.Write([]byte("ok"))
}

// publicConfig exposes settings the public site needs; nothing secret.
func (h *Handler) publicConfig(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"mediaBucket": h.mediaBucket})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&in); err != nil {
		writeError(r.Context(), h.logger, w, fmt.Errorf("%w: invalid JSON body: %v", common.ErrorValidation, err))
		return
	}

	if h.deps.Auth == nil {
		writeError(r.Context(), h.logger, w, fmt.Errorf("%w: authentication is disabled", common.ErrorUnauthorized))
		return
	}
	token, err := h.deps.Auth.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		h.logger.Warn(r.Context(), "login rejected", "username", in.Username)
		writeError(r.Context(), h.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"token": token})
}

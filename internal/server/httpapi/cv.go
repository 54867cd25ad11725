package httpapi

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/server/models"
)

func (h *Handler) getCV(w http.ResponseWriter, r *http.Request) {
	cv, err := h.deps.CV.Get(r.Context())
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	if cv == nil {
		writeData(w, http.StatusOK, nil)
		return
	}
	writeData(w, http.StatusOK, cv)
}

func (h *Handler) putCV(w http.ResponseWriter, r *http.Request) {
	var in models.CV
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&in); err != nil {
		writeError(r.Context(), h.logger, w, fmt.Errorf("%w: invalid JSON body: %v", common.ErrorValidation, err))
		return
	}

	cv, err := h.deps.CV.Put(r.Context(), in)
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, cv)
}

func (h *Handler) deleteCV(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.CV.Delete(r.Context()); err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "deleted"})
}

// downloadCV streams a locally stored CV or redirects to where it lives.
func (h *Handler) downloadCV(w http.ResponseWriter, r *http.Request) {
	d, err := h.deps.CV.Resolve(r.Context())
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}

	if d.RedirectURL != "" {
		http.Redirect(w, r, d.RedirectURL, http.StatusFound)
		return
	}

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	http.ServeFile(w, r, d.Path)
}

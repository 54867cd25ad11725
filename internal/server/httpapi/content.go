package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/server/models"
	"github.com/gorilla/mux"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.deps.Content.List(r.Context(), mux.Vars(r)["collection"])
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	writeData(w, http.StatusOK, docs)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeObject(w, r)
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}

	doc, err := h.deps.Content.Create(r.Context(), mux.Vars(r)["collection"], fields)
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	writeData(w, http.StatusCreated, doc)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := requestID(r)
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	patch, err := decodeObject(w, r)
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}

	doc, err := h.deps.Content.Update(r.Context(), mux.Vars(r)["collection"], id, patch)
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	if doc == nil {
		writeData(w, http.StatusOK, nil)
		return
	}
	writeData(w, http.StatusOK, doc)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := requestID(r)
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}

	collection := mux.Vars(r)["collection"]
	if err := h.deps.Content.Delete(r.Context(), collection, id); err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	h.logger.Info(r.Context(), "document deleted", "collection", collection, "id", id, "by", actor(r.Context()))
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "deleted"})
}

type reorderRequest struct {
	Items json.RawMessage `json:"items"`
}

type reorderItem struct {
	ID    *string  `json:"id"`
	Order *float64 `json:"order"`
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	items, err := decodeReorder(w, r)
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}

	results, err := h.deps.Content.Reorder(r.Context(), mux.Vars(r)["collection"], items)
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}

	applied := 0
	for _, res := range results {
		if res.Applied {
			applied++
		}
	}
	h.logger.Info(r.Context(), "collection reordered",
		"collection", mux.Vars(r)["collection"], "applied", applied, "items", len(results), "by", actor(r.Context()))
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    results,
		Message: fmt.Sprintf("%d of %d items reordered", applied, len(results)),
	})
}

// decodeReorder accepts {"items":[{"id":"...","order":N}, ...]} and nothing
// else: items must be an array, ids non-empty strings, orders integers.
func decodeReorder(w http.ResponseWriter, r *http.Request) ([]models.ReorderItem, error) {
	var req reorderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON body: %v", common.ErrorValidation, err)
	}

	var raw []reorderItem
	if len(req.Items) == 0 || req.Items[0] != '[' {
		return nil, fmt.Errorf("%w: items must be an array", common.ErrorValidation)
	}
	if err := json.Unmarshal(req.Items, &raw); err != nil {
		return nil, fmt.Errorf("%w: items: %v", common.ErrorValidation, err)
	}

	items := make([]models.ReorderItem, 0, len(raw))
	for i, it := range raw {
		if it.ID == nil || strings.TrimSpace(*it.ID) == "" {
			return nil, fmt.Errorf("%w: items[%d].id is required", common.ErrorValidation, i)
		}
		if it.Order == nil || *it.Order != math.Trunc(*it.Order) || math.Abs(*it.Order) > math.MaxInt32 {
			return nil, fmt.Errorf("%w: items[%d].order must be an integer", common.ErrorValidation, i)
		}
		items = append(items, models.ReorderItem{ID: *it.ID, Order: int(*it.Order)})
	}
	return items, nil
}

func (h *Handler) getSingleton(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.Content.Singleton(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	if v == nil {
		writeData(w, http.StatusOK, nil)
		return
	}
	writeData(w, http.StatusOK, v)
}

func (h *Handler) putSingleton(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeError(r.Context(), h.logger, w, fmt.Errorf("%w: %v", common.ErrorValidation, err))
		return
	}

	v, err := h.deps.Content.PutSingleton(r.Context(), mux.Vars(r)["key"], body)
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, v)
}

func (h *Handler) deleteSingleton(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Content.DeleteSingleton(r.Context(), mux.Vars(r)["key"]); err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "deleted"})
}

// requestID takes the id from the path or, failing that, from ?id=.
func requestID(r *http.Request) (string, error) {
	id := mux.Vars(r)["id"]
	if id == "" {
		id = r.URL.Query().Get("id")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: id is required", common.ErrorValidation)
	}
	return id, nil
}

func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	var fields map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON body: %v", common.ErrorValidation, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", common.ErrorValidation)
	}
	return fields, nil
}

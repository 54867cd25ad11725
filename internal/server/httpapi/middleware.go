package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/server/services"
	"github.com/gorilla/mux"
)

type ctxKey string

const usernameKey ctxKey = "username"

// UsernameFromContext returns the authenticated admin, if any.
func UsernameFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(usernameKey).(string)
	return u, ok
}

// actor names the admin behind a change, for audit log lines.
func actor(ctx context.Context) string {
	if u, ok := UsernameFromContext(ctx); ok {
		return u
	}
	return "anonymous"
}

// requireAuth guards mutating routes and private reads with a bearer token.
// Public reads, login and the contact form stay open. With auth disabled
// every route is open.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.deps.Auth == nil || !h.deps.Auth.Enabled() || !needsAuth(r) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeError(r.Context(), h.logger, w, fmt.Errorf("%w: missing bearer token", common.ErrorUnauthorized))
			return
		}

		username, err := h.deps.Auth.Verify(token)
		if err != nil {
			writeError(r.Context(), h.logger, w, err)
			return
		}

		ctx := context.WithValue(r.Context(), usernameKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// needsAuth decides per request. Collection routes follow the collection's
// flags: private collections hide reads and public ones accept anonymous
// creates.
func needsAuth(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return false
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
		return false
	}

	vars := mux.Vars(r)
	spec, err := services.LookupCollection(vars["collection"])
	known := err == nil

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		return known && spec.PrivateRead
	case http.MethodPost:
		_, hasID := vars["id"]
		create := known && !hasID && r.URL.Path == "/api/"+spec.Name
		return !(create && spec.PublicCreate)
	}
	return true
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

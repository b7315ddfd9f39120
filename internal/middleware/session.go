package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dukerupert/shoplist/internal/api"
	"github.com/dukerupert/shoplist/internal/auth"
	"github.com/dukerupert/shoplist/internal/model"
)

// SessionChecker is the part of the auth machine the guard needs.
type SessionChecker interface {
	CheckSession(ctx context.Context) (auth.CheckResult, error)
	Session() model.Session
}

// RequireSession probes the session before protected handlers run and
// puts the session snapshot in the request context. A rejected session
// gets a 401 naming the login route; the UI performs the redirect.
func RequireSession(checker SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := checker.CheckSession(r.Context())
			switch res {
			case auth.CheckSuccess:
				ctx := auth.WithSession(r.Context(), checker.Session())
				next.ServeHTTP(w, r.WithContext(ctx))
			case auth.CheckFail:
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error":    api.Message(api.ErrUnauthorized),
					"redirect": auth.RedirectLogin,
				})
			default:
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"error": api.Message(err),
				})
			}
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

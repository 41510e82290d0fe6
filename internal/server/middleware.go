package server

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gulfshield/claims-engine/internal/config"
	"github.com/gulfshield/claims-engine/internal/model"
)

type contextKey struct{ name string }

var moduleKey = &contextKey{"module"}

// moduleCtx resolves and validates the {module} path parameter. A module that
// is valid but not mounted (no rule file loaded) is 503, not 404: the route
// exists, the line is down.
func (s *Server) moduleCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mod := model.Module(chi.URLParam(r, "module"))
		if !mod.Valid() {
			writeJSONError(w, http.StatusNotFound, "unknown module")
			return
		}
		if _, ok := s.processors[mod]; !ok {
			writeJSONError(w, http.StatusServiceUnavailable, "module is not configured")
			return
		}
		ctx := context.WithValue(r.Context(), moduleKey, mod)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func moduleFrom(ctx context.Context) model.Module {
	mod, _ := ctx.Value(moduleKey).(model.Module)
	return mod
}

// basicAuth enforces the module's credentials. Modules without configured
// credentials are open; TP credentials never unlock CO and vice versa.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds := s.credsFor(moduleFrom(r.Context()))
		if !creds.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(creds.Username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(creds.Password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="claims-engine"`)
			writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) credsFor(mod model.Module) config.BasicAuth {
	switch mod {
	case model.ModuleTP:
		return s.cfg.Server.TPAuth
	case model.ModuleCO:
		return s.cfg.Server.COAuth
	default:
		return config.BasicAuth{}
	}
}

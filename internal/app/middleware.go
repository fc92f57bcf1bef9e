package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/klokku/salesbudget/internal/rest"
	"github.com/klokku/salesbudget/pkg/session"
	log "github.com/sirupsen/logrus"
)

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies) {
	r.Use(SessionMiddleware(deps.SessionService))
}

// SessionMiddleware binds every request to a session. The X-Session-ID request header selects
// an existing session; without a usable one a new session is started. The id in effect is
// echoed in the X-Session-ID response header.
func SessionMiddleware(sessions session.Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			token := req.Header.Get(session.Header)
			id, created, err := sessions.Resolve(req.Context(), token)
			if err != nil {
				log.Errorf("failed to resolve session: %v", err)
				rest.WriteError(w, http.StatusInternalServerError, "Failed to start session", err.Error())
				return
			}
			if created {
				log.Debugf("request bound to new session %s", id)
			}
			w.Header().Set(session.Header, id)
			next.ServeHTTP(w, req.WithContext(session.WithId(req.Context(), id)))
		})
	}
}

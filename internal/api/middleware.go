package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ntbworks/dockyard/internal/auth"
)

type contextKey string

const principalKey contextKey = "principal"

// requireUser resolves the caller through the session bridge and attaches
// the principal to the request context. The two failure modes get distinct
// messages so the frontend can tell "log in" apart from "log in again".
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		oid, err := s.bridge.Identity(r)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		token, err := s.bridge.AccessToken(r.Context(), oid)
		if err != nil {
			if errors.Is(err, auth.ErrCredentialUnobtainable) {
				writeError(w, http.StatusUnauthorized, "session expired")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, &auth.Principal{ObjectID: oid, AccessToken: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principal(r *http.Request) *auth.Principal {
	p, _ := r.Context().Value(principalKey).(*auth.Principal)
	return p
}

// TokenFromContext is the drive client's token source. Drive calls only
// happen inside authenticated requests, where the middleware has already
// placed a principal with a fresh Graph token in the context.
func TokenFromContext(ctx context.Context) (string, error) {
	p, ok := ctx.Value(principalKey).(*auth.Principal)
	if !ok || p.AccessToken == "" {
		return "", auth.ErrCredentialUnobtainable
	}
	return p.AccessToken, nil
}

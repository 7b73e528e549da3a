package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/playmix/trackclash/internal/store"
)

type ctxKey int

const ctxKeySession ctxKey = iota

var errNoSession = errors.New("no valid session")

// sessionFromRequest resolves the Bearer token into a player session.
func sessionFromRequest(r *http.Request, st store.Store) (store.Session, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return store.Session{}, errNoSession
	}
	sess, err := st.SessionByToken(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		return store.Session{}, errNoSession
	}
	return sess, err
}

// sessionMiddleware rejects unauthenticated requests and stashes the
// resolved session in the request context.
func sessionMiddleware(st store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessionFromRequest(r, st)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or missing session token")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeySession, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFrom(r *http.Request) store.Session {
	return r.Context().Value(ctxKeySession).(store.Session)
}

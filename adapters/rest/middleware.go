package rest

import (
	"context"
	"net/http"

	"project-tracker/adapters/auth"
	"project-tracker/pkg/res"
)

type ctxKey int

const userIDKey ctxKey = 0

// Auth resolves the bearer token to a user id and stores it in the request
// context. Requests without a valid credential never reach the handler.
func Auth(v auth.Verifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.TokenFrom(r)
		if token == "" {
			res.Error(w, "missing credentials", http.StatusUnauthorized)
			return
		}

		userID, err := v.Verify(token)
		if err != nil {
			res.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// UserID returns the authenticated caller set by Auth.
func UserID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

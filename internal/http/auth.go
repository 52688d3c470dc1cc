package httpapi

import (
	"context"
	"log"
	"net/http"
)

type contextKey string

const UserIDKey contextKey = "userId"

const devUser = "dev-user"

// ExtractUser reads the user set by the auth proxy in front of the service.
// With devAuth, requests without a user header run as dev-user.
func ExtractUser(devAuth bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Traefik BasicAuth sets this header
			userID := r.Header.Get("X-Auth-User")

			if userID == "" {
				userID = r.Header.Get("X-Forwarded-User")
			}
			if userID == "" {
				userID = r.Header.Get("Remote-User")
			}

			if userID == "" && devAuth {
				userID = devUser
				log.Println("Warning: No auth header, using dev-user")
			}

			if userID == "" {
				log.Printf("Authentication failed: no user header found")
				respondError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserID(r *http.Request) string {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

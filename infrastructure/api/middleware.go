package api

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"log/slog"
	"net/http"
)

// AuthMiddleware verifies the bearer token and stores the user id in the request context.
func AuthMiddleware(log *slog.Logger, verifier contract.IdentityVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := verifier.Verify(r.Context(), auth.ExtractCredential(r))
			if err != nil {
				log.Debug("Request refused", "path", r.URL.Path, "error", err)
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid or expired token"})
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

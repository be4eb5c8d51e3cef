package middleware

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// AdminAuth creates middleware gating operator endpoints behind an
// admin key. The configured value is a bcrypt hash, so a leaked config
// file does not leak the key itself.
func AdminAuth(adminKeyHash, headerName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKeyHash == "" {
				writeAuthError(w, http.StatusForbidden, "Admin access is not configured.")
				return
			}

			providedKey := r.Header.Get(headerName)
			if providedKey == "" {
				writeAuthError(w, http.StatusUnauthorized, "Admin key is required.")
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(adminKeyHash), []byte(providedKey)); err != nil {
				writeAuthError(w, http.StatusForbidden, "Admin access required.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

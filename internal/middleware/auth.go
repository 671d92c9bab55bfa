package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashAPIKey returns the bcrypt hash to configure for key.
func HashAPIKey(key string, cost int) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("hash api key: key is empty")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(hash), nil
}

// RequireAPIKey rejects requests whose "Authorization: Bearer <key>" header
// does not match the bcrypt hash. An empty hash disables the check.
func RequireAPIKey(hash string) func(http.Handler) http.Handler {
	if hash == "" {
		return func(next http.Handler) http.Handler { return next }
	}

	// bcrypt is deliberately slow, so the last key that matched is kept and
	// compared in constant time on later requests.
	var (
		mu       sync.Mutex
		accepted []byte
	)
	check := func(key []byte) bool {
		mu.Lock()
		known := accepted
		mu.Unlock()
		if known != nil && subtle.ConstantTimeCompare(known, key) == 1 {
			return true
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), key) != nil {
			return false
		}
		mu.Lock()
		accepted = key
		mu.Unlock()
		return true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := bearerToken(r)
			if !ok || !check([]byte(key)) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="shoplist"`)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid or missing api key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/finclaw/internal/types"
	"github.com/user/finclaw/pkg/httputil"
)

type contextKey string

const ownerKey contextKey = "owner"

// Claims carries the owner identity inside access tokens.
type Claims struct {
	OwnerID string `json:"owner_id"`
	jwt.RegisteredClaims
}

// NewAccessToken signs a token for the given owner.
func NewAccessToken(owner types.OwnerID, secret string, ttl time.Duration) (string, error) {
	claims := Claims{
		OwnerID: string(owner),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   string(owner),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Auth verifies the bearer token and injects the owner into the request
// context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				httputil.RespondError(w, http.StatusUnauthorized, "Malformed Authorization header")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					httputil.RespondError(w, http.StatusUnauthorized, "Token has expired")
				} else {
					httputil.RespondError(w, http.StatusUnauthorized, "Invalid token")
				}
				return
			}
			if !token.Valid {
				httputil.RespondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			owner, err := types.ParseOwnerID(claims.OwnerID)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "Invalid token claims")
				return
			}

			ctx := context.WithValue(r.Context(), ownerKey, owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OwnerFromContext extracts the authenticated owner.
func OwnerFromContext(ctx context.Context) (types.OwnerID, error) {
	owner, ok := ctx.Value(ownerKey).(types.OwnerID)
	if !ok {
		return "", errors.New("owner not found in context")
	}
	return owner, nil
}

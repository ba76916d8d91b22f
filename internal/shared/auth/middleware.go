package auth

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/barangay-rbi/registry/internal/shared/config"
	"github.com/barangay-rbi/registry/internal/shared/errors"
	"github.com/barangay-rbi/registry/internal/shared/httpx"
	"github.com/barangay-rbi/registry/internal/shared/types"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

// Roles recognised by the registry.
const (
	RoleAdmin   = "admin"
	RoleEncoder = "encoder"
	RoleViewer  = "viewer"
)

// User represents the authenticated barangay official from JWT claims
type User struct {
	ID           types.ID `json:"sub"`
	Name         string   `json:"name"`
	BarangayCode string   `json:"barangay_code"`
	Roles        []string `json:"roles"`
}

// Claims extends JWT claims with registry-specific data
type Claims struct {
	jwt.RegisteredClaims
	Name         string   `json:"name,omitempty"`
	BarangayCode string   `json:"barangay_code"`
	Roles        []string `json:"roles"`
}

// Middleware creates JWT authentication middleware
func Middleware(cfg config.AuthConfig) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httpx.WriteError(w, errors.Unauthorized("missing authorization header"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				httpx.WriteError(w, errors.Unauthorized("invalid authorization header format"))
				return
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || !token.Valid {
				httpx.WriteError(w, errors.Unauthorized("invalid token"))
				return
			}

			user := &User{
				ID:           types.ID(claims.Subject),
				Name:         claims.Name,
				BarangayCode: claims.BarangayCode,
				Roles:        claims.Roles,
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser extracts the user from request context
func GetUser(ctx context.Context) *User {
	user, ok := ctx.Value(UserContextKey).(*User)
	if !ok {
		return nil
	}
	return user
}

// WithUser stores a user on the context; used by the CLI and tests.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// RequireRoles creates middleware that requires any of the given roles.
// Requests without a user (auth disabled in development) pass through.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user != nil && !user.HasAnyRole(roles...) {
				httpx.WriteError(w, errors.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HasAnyRole checks if user has at least one of the roles
func (u *User) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if slices.Contains(u.Roles, role) {
			return true
		}
	}
	return false
}

// IsAdmin checks if user is an admin
func (u *User) IsAdmin() bool {
	return u.HasAnyRole(RoleAdmin)
}

// IssueToken signs a token for a user; used by the CLI for local testing.
func IssueToken(cfg config.AuthConfig, user User, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = user.ID.String()
	if cfg.Issuer != "" {
		claims.Issuer = cfg.Issuer
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: claims,
		Name:             user.Name,
		BarangayCode:     user.BarangayCode,
		Roles:            user.Roles,
	})
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

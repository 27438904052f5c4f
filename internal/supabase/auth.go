package supabase

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	userIDKey    contextKey = "supabase_user_id"
	userRoleKey  contextKey = "supabase_role"
	userTokenKey contextKey = "supabase_token"
)

// Verifier validates Supabase-issued session JWTs (HS256, signed with the
// project JWT secret) and places the caller's identity and raw token in the
// request context. The raw token is forwarded to PostgREST so row-level
// security applies.
type Verifier struct {
	secret []byte
	logger *zap.Logger
}

// NewVerifier creates a session verifier for the project's JWT secret.
func NewVerifier(secret string, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{secret: []byte(secret), logger: logger.Named("auth")}
}

// Middleware rejects requests without a valid Supabase session token.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(w, "Authentication required")
			return
		}
		raw := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return v.secret, nil
		})
		if err != nil || !token.Valid {
			v.logger.Warn("invalid session token", zap.Error(err))
			unauthorized(w, "Invalid or expired session")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(w, "Invalid session claims")
			return
		}
		userID, _ := claims["sub"].(string)
		if userID == "" {
			unauthorized(w, "Session missing subject")
			return
		}
		role, _ := claims["role"].(string)
		if role == "" {
			role = "authenticated"
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, userRoleKey, role)
		ctx = context.WithValue(ctx, userTokenKey, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":` + jsonString(msg) + `,"type":"AUTHENTICATION"}`))
}

func jsonString(s string) string {
	// Messages are our own constants; quoting suffices.
	return `"` + s + `"`
}

// UserID returns the authenticated user id, or "" for unauthenticated
// contexts (tests, health checks).
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// UserRole returns the Supabase role claim, defaulting to "authenticated".
func UserRole(ctx context.Context) string {
	if role, ok := ctx.Value(userRoleKey).(string); ok {
		return role
	}
	return "authenticated"
}

// SessionToken returns the caller's raw bearer token for forwarding to
// PostgREST, or "" when the context is unauthenticated.
func SessionToken(ctx context.Context) string {
	tok, _ := ctx.Value(userTokenKey).(string)
	return tok
}

// WithSession injects identity into a context; test helper for handlers.
func WithSession(ctx context.Context, userID, role, token string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, userRoleKey, role)
	return context.WithValue(ctx, userTokenKey, token)
}

package auth

import (
	"context"
)

// Schlüsseltyp für Kontextwerte
type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	claimsKey    contextKey = "jwt_claims"
)

// NewContextWithSessionID stores a session ID in ctx.
func NewContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// GetSessionIDFromContext returns the session ID and whether one was set.
func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionIDKey).(string)
	return sessionID, ok && sessionID != ""
}

// AddClaimsToContext stores the claims and their session ID in ctx.
func AddClaimsToContext(ctx context.Context, claims *PlayClaims) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	if claims != nil {
		ctx = NewContextWithSessionID(ctx, claims.SessionID)
	}
	return ctx
}

// GetClaimsFromContext extrahiert die Claims aus dem Kontext
func GetClaimsFromContext(ctx context.Context) (*PlayClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*PlayClaims)
	return claims, ok && claims != nil
}

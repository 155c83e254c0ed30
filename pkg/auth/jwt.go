package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/antibyte/pixelbasic/pkg/configuration"
	"github.com/antibyte/pixelbasic/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultJWTSecret = "fallback_secret_change_in_production"
	tokenIssuer      = "pixelbasic"
	tokenSubject     = "player"
)

var (
	// ErrInvalidToken is returned for tokens that fail signature, claim or
	// expiry checks.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrNoToken is returned when a request carries no token at all.
	ErrNoToken = errors.New("no token found in request")
)

// getJWTSecret liest das Secret aus der Umgebung oder aus [JWT].
func getJWTSecret() string {
	if envSecret := os.Getenv("JWT_SECRET_KEY"); envSecret != "" {
		return envSecret
	}
	secret := configuration.GetString("JWT", "secret_key", "")
	if secret == "" || secret == defaultJWTSecret {
		logger.Warn(logger.AreaSecurity, "Using fallback JWT secret - set JWT_SECRET_KEY for production!")
		return defaultJWTSecret
	}
	return secret
}

func getTokenExpiration() time.Duration {
	hours := configuration.GetInt("JWT", "token_expiration_hours", 24)
	return time.Duration(hours) * time.Hour
}

// PlayClaims authorize one play session for one stored program.
type PlayClaims struct {
	SessionID string `json:"sid"`
	Program   string `json:"prg,omitempty"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs a token for sessionID. program may be empty,
// in which case the client picks the program when connecting.
func GenerateSessionToken(sessionID, program string) (string, error) {
	now := time.Now()
	claims := PlayClaims{
		SessionID: sessionID,
		Program:   program,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(getTokenExpiration())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   tokenSubject,
			ID:        sessionID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(getJWTSecret()))
	if err != nil {
		return "", fmt.Errorf("token could not be signed: %w", err)
	}
	logger.Debug(logger.AreaSecurity, "session token issued for %s", sessionID)
	return signed, nil
}

// ValidateSessionToken checks signature, algorithm, issuer and expiry.
func ValidateSessionToken(tokenString string) (*PlayClaims, error) {
	secret := getJWTSecret()
	token, err := jwt.ParseWithClaims(
		tokenString,
		&PlayClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*PlayClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractTokenFromRequest reads the token from a Bearer header, the
// play_token cookie or the token query parameter, in that order. Browsers
// cannot set headers on WebSocket upgrades, hence the query fallback.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1], nil
		}
		return "", fmt.Errorf("invalid authorization header format")
	}
	if cookie, err := r.Cookie("play_token"); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", ErrNoToken
}

// RequireSessionToken rejects requests without a valid token and puts the
// claims into the request context.
func RequireSessionToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next(w, r)
			return
		}
		tokenString, err := ExtractTokenFromRequest(r)
		if err != nil {
			logger.Warn(logger.AreaSecurity, "request without token from %s: %v", getClientIP(r), err)
			http.Error(w, "Unauthorized: token missing", http.StatusUnauthorized)
			return
		}
		claims, err := ValidateSessionToken(tokenString)
		if err != nil {
			logger.Warn(logger.AreaSecurity, "invalid token from %s: %v", getClientIP(r), err)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(AddClaimsToContext(r.Context(), claims)))
	}
}

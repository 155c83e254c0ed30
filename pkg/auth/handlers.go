package auth

import (
	"encoding/json"
	"net/http"

	"github.com/antibyte/pixelbasic/pkg/logger"
)

// SessionRegistrar allocates play sessions. It is implemented by the
// session manager; a registrar may refuse when its capacity is reached.
type SessionRegistrar interface {
	Register(program, clientIP string) (string, error)
}

// TokenRequest is the body of POST /api/token.
type TokenRequest struct {
	Program string `json:"program"`
}

// TokenResponse definiert die Antwort auf Token-Anfragen
type TokenResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Content-Type", "application/json")
}

// NewTokenHandler returns the handler for POST /api/token: it registers a
// session and answers with its signed token.
func NewTokenHandler(reg SessionRegistrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req TokenRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
				respondWithError(w, "Invalid request body", http.StatusBadRequest)
				return
			}
		}

		clientIP := getClientIP(r)
		sessionID, err := reg.Register(req.Program, clientIP)
		if err != nil {
			logger.Warn(logger.AreaSession, "session refused for %s: %v", clientIP, err)
			respondWithError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		token, err := GenerateSessionToken(sessionID, req.Program)
		if err != nil {
			logger.Error(logger.AreaSecurity, "token generation failed: %v", err)
			respondWithError(w, "Token generation failed", http.StatusInternalServerError)
			return
		}

		logger.Info(logger.AreaSession, "session %s created for %s", sessionID, clientIP)
		json.NewEncoder(w).Encode(TokenResponse{
			Success:   true,
			Token:     token,
			SessionID: sessionID,
			Message:   "Session created",
		})
	}
}

// HandleTokenValidation answers whether the token in the request is valid.
func HandleTokenValidation(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	tokenString, err := ExtractTokenFromRequest(r)
	if err != nil {
		respondWithError(w, "No token", http.StatusUnauthorized)
		return
	}
	claims, err := ValidateSessionToken(tokenString)
	if err != nil {
		respondWithError(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	json.NewEncoder(w).Encode(TokenResponse{
		Success:   true,
		SessionID: claims.SessionID,
		Message:   "Token valid",
	})
}

// getClientIP bevorzugt Proxy-Header vor RemoteAddr
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(TokenResponse{
		Success: false,
		Message: message,
	})
}

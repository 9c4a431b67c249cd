package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const ClientIDKey contextKey = "client_id"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// ClientAuth issues and checks anonymous client tokens. A client id is the
// only identity the service knows; quota and sessions hang off it.
type ClientAuth struct {
	Secret []byte
	TTL    time.Duration
}

func NewClientAuth(secret string, ttl time.Duration) *ClientAuth {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &ClientAuth{Secret: []byte(secret), TTL: ttl}
}

// IssueToken signs a token for clientID. An empty clientID gets a fresh one.
func (a *ClientAuth) IssueToken(clientID string) (token, id string, expiresAt time.Time, err error) {
	if clientID == "" {
		clientID = uuid.NewString()
	}
	now := time.Now()
	expiresAt = now.Add(a.TTL)
	claims := jwt.MapClaims{
		"client_id": clientID,
		"exp":       expiresAt.Unix(),
		"iat":       now.Unix(),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, clientID, expiresAt, nil
}

// ParseToken verifies the signature and expiry and returns the client id.
func (a *ClientAuth) ParseToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	clientID, _ := claims["client_id"].(string)
	if _, err := uuid.Parse(clientID); err != nil {
		return "", ErrInvalidToken
	}
	return clientID, nil
}

// Middleware validates the bearer token and attaches client_id to the context.
func (a *ClientAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header", r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format", r)
			return
		}

		clientID, err := a.ParseToken(parts[1])
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
			}
			return
		}

		ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientID extracts client_id from request context
func GetClientID(ctx context.Context) string {
	id, _ := ctx.Value(ClientIDKey).(string)
	return id
}

func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, ClientIDKey, clientID)
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}

package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/tunebox/tunebox/models"
)

const usernameClaim = "username"

var (
	ErrNoToken      = errors.New("no token provided")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is what a verified token says about its bearer
type Claims struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}

// TokenManager issues and verifies HS256 bearer tokens
type TokenManager struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		key: []byte(secret),
		ttl: ttl,
		now: time.Now,
	}
}

// Issue signs a token for user that expires after the manager's ttl
func (tm *TokenManager) Issue(user *models.User) (string, error) {
	now := tm.now().UTC()

	tok, err := jwt.NewBuilder().
		Subject(user.ID).
		IssuedAt(now).
		Expiration(now.Add(tm.ttl)).
		Claim(usernameClaim, user.Username).
		Build()
	if err != nil {
		return "", err
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, tm.key))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// Verify checks the signature and expiry of a token
func (tm *TokenManager) Verify(token string) (*Claims, error) {
	tok, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, tm.key),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(tm.now)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tok.Subject() == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{UserID: tok.Subject(), ExpiresAt: tok.Expiration()}
	if v, ok := tok.Get(usernameClaim); ok {
		claims.Username, _ = v.(string)
	}
	return claims, nil
}

// ExtractBearer reads the token from the Authorization header
func ExtractBearer(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrNoToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrNoToken
	}
	return strings.TrimSpace(parts[1]), nil
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "` + message + `"}`))
}

// middleware that requires a valid bearer token
func WithAuth(handler http.HandlerFunc, tm *TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := ExtractBearer(r)
		if err != nil {
			unauthorized(w, "No token provided")
			return
		}

		claims, err := tm.Verify(token)
		if err != nil {
			unauthorized(w, "Invalid token")
			return
		}

		ctx := WithUserID(r.Context(), claims.UserID)
		r = r.WithContext(ctx)

		handler(w, r)
	}
}

type contextKey int

const (
	userIDKey contextKey = iota
)

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

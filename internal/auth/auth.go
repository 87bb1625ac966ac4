// Package auth provides the session middleware and helpers for JWT-based
// identification of logged-in users. The token travels in an HttpOnly cookie,
// or in the Authorization header for API clients.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/db/storage"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

type userGetter interface {
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
}

// Auth handles session tokens. It issues them on login, clears them on logout
// and resolves them back to a stored user on every request.
type Auth struct {
	// db is the interface to the user data storage.
	db userGetter

	// sessionCookieName is the name of the cookie used to store the JWT.
	sessionCookieName string

	// signingSecretKey is the key used to sign JWTs.
	signingSecretKey []byte

	// maxAge bounds both the token expiry and the cookie lifetime.
	maxAge time.Duration
}

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds a user-specific identifier.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

var ErrInvalidToken = errors.New("invalid session token")

// New creates a new Auth handler with the given user data access layer,
// cookie name, JWT signing secret and session lifetime.
func New(
	db userGetter,
	sessionCookieName string,
	signingSecretKey []byte,
	maxAge time.Duration,
) *Auth {
	return &Auth{
		db:                db,
		sessionCookieName: sessionCookieName,
		signingSecretKey:  signingSecretKey,
		maxAge:            maxAge,
	}
}

// UserIDFromContext returns the logged-in user ID, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// StartSession issues a signed token for userID and sets it as the session cookie.
func (a *Auth) StartSession(response http.ResponseWriter, userID string) error {
	expiresAt := time.Now().Add(a.maxAge)

	JWTString, err := a.BuildJWTString(userID, expiresAt)
	if err != nil {
		return fmt.Errorf("in internal/auth/auth.go/StartSession(): error while `a.BuildJWTString()` calling: %w", err)
	}

	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.sessionCookieName,
			Value:    JWTString,
			Path:     "/",
			Expires:  expiresAt,
			MaxAge:   int(a.maxAge.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	)

	return nil
}

// EndSession tells the client to drop the session cookie.
func (a *Auth) EndSession(response http.ResponseWriter) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.sessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	)
}

// AuthenticateUser is an HTTP middleware that resolves the session token
// to a stored user and puts its ID into the request context.
// Requests without a valid token, or whose user no longer exists, pass through anonymous.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		tokenString := a.getTokenStringFromAuthorizationHeaderOrCookie(request)
		if tokenString == "" {
			h.ServeHTTP(response, request)
			return
		}

		userID, err := a.GetUserIDFromToken(tokenString)
		if err != nil {
			logger.Log.Debugw("Session token rejected", zap.Error(err))
			h.ServeHTTP(response, request)
			return
		}

		usr, err := a.db.GetUserByID(request.Context(), userID)
		if errors.Is(err, storage.ErrUserNotFound) {
			h.ServeHTTP(response, request)
			return
		}
		if err != nil {
			logger.Log.Errorw("Error calling the `a.db.GetUserByID()`", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		logger.AddRequestFields(request.Context(), "user_id", usr.ID)
		ctx := context.WithValue(request.Context(), UserIDKey, usr.ID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

func (a *Auth) getTokenStringFromAuthorizationHeaderOrCookie(request *http.Request) string {
	tokenString := request.Header.Get("Authorization")
	if tokenString != "" {
		return tokenString
	}
	cookie, err := request.Cookie(a.sessionCookieName)
	if err == nil {
		tokenString = cookie.Value
	}

	return tokenString
}

// GetUserIDFromToken verifies the signature and expiry of tokenString and returns its user ID.
func (a *Auth) GetUserIDFromToken(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingSecretKey, nil
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}

// BuildJWTString signs a token carrying userID that expires at expiresAt.
func (a *Auth) BuildJWTString(userID string, expiresAt time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(a.signingSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

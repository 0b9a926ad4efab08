package authorization

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tours_backend/domain"
	"tours_backend/errors"
)

type contextKey int

const userKey contextKey = 0

const CookieName = "jwt"

// ErrorWriter lets this package report auth failures through the central
// error envelope without importing the handlers package.
type ErrorWriter func(w http.ResponseWriter, err error)

func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey).(*domain.User)
	return user, ok
}

func ContextWithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func extractToken(req *http.Request) string {
	bearer := req.Header.Get("Authorization")
	if bearer != "" {
		parts := strings.Split(bearer, "Bearer ")
		if len(parts) == 2 {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	if cookie, err := req.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func resolveUser(req *http.Request, users domain.UserStore) (*domain.User, error) {
	tokenString := extractToken(req)
	if tokenString == "" {
		return nil, errors.New(errors.MissingTokenError, 401)
	}

	claims, err := ParseClaims(tokenString)
	if err != nil {
		return nil, err
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, errors.New(errors.InvalidTokenError, 401)
	}

	user, err := users.GetByID(req.Context(), id)
	if err != nil {
		return nil, errors.New(errors.UserGoneError, 401)
	}

	// A token issued before the last password change is no longer valid.
	if !user.PasswordChangedAt.IsZero() && user.PasswordChangedAt.After(claims.IssuedAt) {
		return nil, errors.New(errors.PasswordChangedError, 401)
	}

	return user, nil
}

// Protect verifies the session token from the Authorization header or the
// jwt cookie, re-loads the user and attaches it to the request context.
func Protect(users domain.UserStore, logger *logrus.Logger, writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			user, err := resolveUser(req, users)
			if err != nil {
				logger.WithField("path", req.URL.Path).Warn("unauthenticated request")
				writeError(rw, err)
				return
			}

			next.ServeHTTP(rw, req.WithContext(ContextWithUser(req.Context(), user)))
		})
	}
}

// ResolveOptional runs the same verification as Protect but never fails the
// request; view routes render for anonymous visitors.
func ResolveOptional(users domain.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			if user, err := resolveUser(req, users); err == nil {
				req = req.WithContext(ContextWithUser(req.Context(), user))
			}
			next.ServeHTTP(rw, req)
		})
	}
}

// RestrictTo allows the request only when the already-resolved user's role
// is in the allowed list. Must run after Protect.
func RestrictTo(writeError ErrorWriter, next http.HandlerFunc, roles ...domain.UserRole) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		user, ok := UserFromContext(req.Context())
		if !ok {
			writeError(rw, errors.New(errors.MissingTokenError, 401))
			return
		}

		for _, role := range roles {
			if user.Role == role {
				next.ServeHTTP(rw, req)
				return
			}
		}
		writeError(rw, errors.New(errors.NoPermissionError, 403))
	}
}

package casbinAuthorization

import (
	"net/http"

	"github.com/casbin/casbin"
	"github.com/sirupsen/logrus"

	"tours_backend/authorization"
	"tours_backend/errors"
)

const unauthenticated = "Unauthenticated"

func extractRole(req *http.Request) string {
	bearer := req.Header.Get("Authorization")
	cookie, cookieErr := req.Cookie(authorization.CookieName)
	if bearer == "" && cookieErr != nil {
		return unauthenticated
	}

	var tokenString string
	if bearer != "" {
		if len(bearer) > len("Bearer ") {
			tokenString = bearer[len("Bearer "):]
		}
	} else {
		tokenString = cookie.Value
	}

	claims, err := authorization.ParseClaims(tokenString)
	if err != nil {
		return unauthenticated
	}
	return string(claims.Role)
}

// CasbinMiddleware enforces the coarse path/method policy from policy.csv
// over the whole API surface. Fine-grained per-route role lists are checked
// by authorization.RestrictTo after the token guard. Denials go through
// writeError so they carry the same envelope as every other error.
func CasbinMiddleware(enforcer *casbin.Enforcer, logger *logrus.Logger, writeError authorization.ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			role := extractRole(req)

			allowed, err := enforcer.EnforceSafe(role, req.URL.Path, req.Method)
			if err != nil {
				logger.WithField("path", req.URL.Path).Error("error enforcing authorization policy")
				writeError(rw, errors.New("Could not evaluate the authorization policy", 500))
				return
			}

			if !allowed {
				logger.WithFields(logrus.Fields{
					"role":   role,
					"path":   req.URL.Path,
					"method": req.Method,
				}).Warn("request denied by policy")
				if role == unauthenticated {
					writeError(rw, errors.New(errors.MissingTokenError, 401))
				} else {
					writeError(rw, errors.New(errors.NoPermissionError, 403))
				}
				return
			}

			next.ServeHTTP(rw, req)
		})
	}
}

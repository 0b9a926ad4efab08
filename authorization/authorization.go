package authorization

import (
	"os"
	"time"

	"github.com/cristalhq/jwt/v4"

	"tours_backend/domain"
	"tours_backend/errors"
)

func jwtKey() []byte {
	return []byte(os.Getenv("SECRET_KEY"))
}

// GenerateJWT issues a signed session token embedding the user's id and
// role. IssuedAt is compared against the password-change timestamp during
// verification.
func GenerateJWT(user *domain.User, ttl time.Duration) (string, error) {
	signer, err := jwt.NewSignerHS(jwt.HS256, jwtKey())
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := &domain.Claims{
		UserID:    user.ID.Hex(),
		Role:      user.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	token, err := jwt.NewBuilder(signer).Build(claims)
	if err != nil {
		return "", err
	}
	return token.String(), nil
}

// ParseClaims verifies the signature and expiry of a token string.
func ParseClaims(tokenString string) (*domain.Claims, error) {
	verifier, err := jwt.NewVerifierHS(jwt.HS256, jwtKey())
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse([]byte(tokenString), verifier)
	if err != nil {
		return nil, errors.New(errors.InvalidTokenError, 401)
	}

	var claims domain.Claims
	if err := jwt.ParseClaims(token.Bytes(), verifier, &claims); err != nil {
		return nil, errors.New(errors.InvalidTokenError, 401)
	}

	if claims.ExpiresAt.IsZero() || time.Now().After(claims.ExpiresAt) {
		return nil, errors.New(errors.InvalidTokenError, 401)
	}
	return &claims, nil
}

package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"tours_backend/authorization"
	"tours_backend/domain"
	"tours_backend/errors"
)

const resetTokenTTL = 10 * time.Minute

type AuthService struct {
	users    domain.UserStore
	mailer   domain.Mailer
	tokenTTL time.Duration
	tracer   trace.Tracer
	logger   *logrus.Logger
}

func NewAuthService(users domain.UserStore, mailer domain.Mailer, tokenTTL time.Duration, tracer trace.Tracer, logger *logrus.Logger) *AuthService {
	return &AuthService{
		users:    users,
		mailer:   mailer,
		tokenTTL: tokenTTL,
		tracer:   tracer,
		logger:   logger,
	}
}

// Register creates the user with a one-way hashed password and issues a
// session token. The plaintext password and its confirmation never reach
// the store.
func (service *AuthService) Register(ctx context.Context, request *domain.RegisterRequest) (*domain.User, string, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	if request.Password != request.PasswordConfirm {
		return nil, "", errors.New(errors.NotMatchingPasswordsError, 400)
	}

	user := &domain.User{
		Name:     request.Name,
		Email:    strings.ToLower(request.Email),
		Role:     domain.RoleUser,
		Password: request.Password,
	}
	if err := user.Validate(); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}
	user.Password = string(hash)

	if err := service.users.Insert(ctx, user); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}

	if err := service.mailer.SendWelcome(user.Email, user.Name); err != nil {
		// Registration succeeded; a lost welcome mail is not worth failing it.
		service.logger.Warnf("welcome mail to %s not sent: %s", user.Email, err)
	}

	token, err := authorization.GenerateJWT(user, service.tokenTTL)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies an identifier (name or email) and password and issues a
// fresh session token. Unknown or inactive users fail with 404, a wrong
// password with 401.
func (service *AuthService) Login(ctx context.Context, request *domain.LoginRequest) (*domain.User, string, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if request.Identifier == "" || request.Password == "" {
		return nil, "", errors.New("Identifier and password are required", 400)
	}

	user, err := service.users.GetByIdentifier(ctx, request.Identifier)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, "", errors.New(errors.NoUserError, 404)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(request.Password)); err != nil {
		service.logger.WithField("identifier", request.Identifier).Warn("failed login attempt")
		return nil, "", errors.New(errors.InvalidCredentials, 401)
	}

	token, err := authorization.GenerateJWT(user, service.tokenTTL)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}
	return user, token, nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ForgotPassword stores a hashed reset token with a short expiry on the
// user record and mails the plaintext token out-of-band.
func (service *AuthService) ForgotPassword(ctx context.Context, email, resetURLBase string) error {
	ctx, span := service.tracer.Start(ctx, "AuthService.ForgotPassword")
	defer span.End()

	user, err := service.users.GetByIdentifier(ctx, strings.ToLower(email))
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return errors.New("There is no user with that email address", 404)
		}
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	resetToken := uuid.NewString()
	user.PasswordResetToken = hashResetToken(resetToken)
	user.PasswordResetExpires = time.Now().Add(resetTokenTTL)

	if err := service.users.Replace(ctx, user.ID, user); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	resetURL := fmt.Sprintf("%s/%s", strings.TrimRight(resetURLBase, "/"), resetToken)
	if err := service.mailer.SendPasswordReset(user.Email, user.Name, resetURL); err != nil {
		// Without the mail the token is unusable, so roll the fields back.
		user.PasswordResetToken = ""
		user.PasswordResetExpires = time.Time{}
		if replaceErr := service.users.Replace(ctx, user.ID, user); replaceErr != nil {
			service.logger.Errorf("clearing reset token for %s failed: %s", user.Email, replaceErr)
		}
		span.SetStatus(codes.Error, err.Error())
		return errors.New(errors.MailSendError, 500)
	}
	return nil
}

// ResetPassword redeems a reset token. The presented plaintext is hashed
// and matched against an unexpired stored hash.
func (service *AuthService) ResetPassword(ctx context.Context, token string, request *domain.ResetPasswordRequest) (*domain.User, string, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.ResetPassword")
	defer span.End()

	user, err := service.users.GetByResetToken(ctx, hashResetToken(token))
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, "", errors.New(errors.ResetTokenError, 400)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}

	sessionToken, err := service.setPassword(ctx, user, request.Password, request.PasswordConfirm)
	if err != nil {
		return nil, "", err
	}
	return user, sessionToken, nil
}

// UpdatePassword changes the password of an authenticated user after
// verifying the current one, and re-issues a session token since the
// change invalidates all previously issued ones.
func (service *AuthService) UpdatePassword(ctx context.Context, user *domain.User, request *domain.UpdatePasswordRequest) (string, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.UpdatePassword")
	defer span.End()

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(request.PasswordCurrent)); err != nil {
		return "", errors.New(errors.WrongPasswordError, 401)
	}

	return service.setPassword(ctx, user, request.Password, request.PasswordConfirm)
}

func (service *AuthService) setPassword(ctx context.Context, user *domain.User, password, passwordConfirm string) (string, error) {
	if password != passwordConfirm {
		return "", errors.New(errors.NotMatchingPasswordsError, 400)
	}

	probe := *user
	probe.Password = password
	if err := probe.Validate(); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	user.Password = string(hash)
	// Backdated one second so the token issued below is not rejected by its
	// own password change.
	user.PasswordChangedAt = time.Now().Add(-time.Second)
	user.PasswordResetToken = ""
	user.PasswordResetExpires = time.Time{}

	if err := service.users.Replace(ctx, user.ID, user); err != nil {
		return "", err
	}

	return authorization.GenerateJWT(user, service.tokenTTL)
}

package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tours_backend/domain"
	"tours_backend/errors"
)

// Only these profile fields may be changed through updateMe. Everything
// else in the body is rejected instead of silently spread onto the record.
type profileUpdate struct {
	Name  string `mapstructure:"name" validate:"omitempty,max=40"`
	Email string `mapstructure:"email" validate:"omitempty,email"`
}

type UserService struct {
	users  domain.UserStore
	photos domain.PhotoStorage
	tracer trace.Tracer
	logger *logrus.Logger
}

func NewUserService(users domain.UserStore, photos domain.PhotoStorage, tracer trace.Tracer, logger *logrus.Logger) *UserService {
	return &UserService{
		users:  users,
		photos: photos,
		tracer: tracer,
		logger: logger,
	}
}

// UpdateProfile applies an allow-listed partial update to the current
// user. Password fields must go through the dedicated password routes.
func (service *UserService) UpdateProfile(ctx context.Context, user *domain.User, body map[string]interface{}, photo []byte, photoExt string) (*domain.User, error) {
	ctx, span := service.tracer.Start(ctx, "UserService.UpdateProfile")
	defer span.End()

	if _, ok := body["password"]; ok {
		return nil, errors.New(errors.PasswordUpdateRouteError, 400)
	}
	if _, ok := body["passwordConfirm"]; ok {
		return nil, errors.New(errors.PasswordUpdateRouteError, 400)
	}

	var update profileUpdate
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &update,
		TagName:     "mapstructure",
		ErrorUnused: false,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(body); err != nil {
		return nil, errors.New(errors.InvalidRequestFormatError, 400)
	}
	if err := validator.New().Struct(&update); err != nil {
		return nil, err
	}

	if update.Name != "" {
		user.Name = update.Name
	}
	if update.Email != "" {
		// Emails are stored lowercase everywhere; login looks them up that way.
		user.Email = strings.ToLower(update.Email)
	}

	if len(photo) > 0 {
		filename := fmt.Sprintf("user-%s-%d%s", user.ID.Hex(), time.Now().Unix(), photoExt)
		stored, err := service.photos.Save(ctx, filename, photo)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		// The photo write and the user update are not atomic; a failure
		// here leaves an orphaned file, never a dangling reference.
		user.Photo = stored
	}

	if err := service.users.Replace(ctx, user.ID, user); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return user, nil
}

// Deactivate soft-deletes the current user.
func (service *UserService) Deactivate(ctx context.Context, user *domain.User) error {
	ctx, span := service.tracer.Start(ctx, "UserService.Deactivate")
	defer span.End()

	if err := service.users.Deactivate(ctx, user.ID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	service.logger.WithField("user", user.ID.Hex()).Info("user deactivated")
	return nil
}

package application

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tours_backend/domain"
	"tours_backend/errors"
)

type BookingService struct {
	bookings domain.BookingStore
	tours    domain.TourStore
	payments domain.PaymentClient
	tracer   trace.Tracer
	logger   *logrus.Logger
}

func NewBookingService(bookings domain.BookingStore, tours domain.TourStore, payments domain.PaymentClient, tracer trace.Tracer, logger *logrus.Logger) *BookingService {
	return &BookingService{
		bookings: bookings,
		tours:    tours,
		payments: payments,
		tracer:   tracer,
		logger:   logger,
	}
}

// CreateCheckoutSession asks the payment provider for a checkout session
// for the given tour on behalf of the current user.
func (service *BookingService) CreateCheckoutSession(ctx context.Context, tourID primitive.ObjectID, user *domain.User) (*domain.CheckoutSession, error) {
	ctx, span := service.tracer.Start(ctx, "BookingService.CreateCheckoutSession")
	defer span.End()

	tour, err := service.tours.GetByID(ctx, tourID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.New(errors.NotFoundError, 404)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	session, err := service.payments.CreateCheckoutSession(ctx, tour, user)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return session, nil
}

// ConfirmCheckout verifies a checkout session with the provider and
// records the paid booking it references.
func (service *BookingService) ConfirmCheckout(ctx context.Context, sessionID string) (*domain.Booking, error) {
	ctx, span := service.tracer.Start(ctx, "BookingService.ConfirmCheckout")
	defer span.End()

	if sessionID == "" {
		return nil, errors.New("Session id is required", 400)
	}

	session, err := service.payments.GetSession(ctx, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !session.Paid {
		return nil, errors.New("Checkout session has not been paid", 400)
	}

	tourID, err := primitive.ObjectIDFromHex(session.TourID)
	if err != nil {
		return nil, errors.New(errors.InvalidRequestFormatError, 400)
	}
	userID, err := primitive.ObjectIDFromHex(session.UserID)
	if err != nil {
		return nil, errors.New(errors.InvalidRequestFormatError, 400)
	}

	booking := &domain.Booking{
		Tour:  tourID,
		User:  userID,
		Price: session.Amount,
		Paid:  true,
	}
	if err := service.bookings.Insert(ctx, booking); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	service.logger.WithFields(logrus.Fields{
		"tour": session.TourID,
		"user": session.UserID,
	}).Info("booking created from checkout session")
	return booking, nil
}

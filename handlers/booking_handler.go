package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tours_backend/authorization"
	"tours_backend/domain"
	"tours_backend/errors"
	"tours_backend/query"
	application "tours_backend/service"
)

type BookingHandler struct {
	*Factory[*domain.Booking]
	service  *application.BookingService
	bookings domain.BookingStore
	logger   *log.Logger
}

func NewBookingHandler(factory *Factory[*domain.Booking], service *application.BookingService, bookings domain.BookingStore, logger *log.Logger) *BookingHandler {
	return &BookingHandler{Factory: factory, service: service, bookings: bookings, logger: logger}
}

// GetCheckoutSession opens a payment session for the tour with the
// external checkout provider.
func (handler *BookingHandler) GetCheckoutSession(writer http.ResponseWriter, req *http.Request) {
	user, ok := authorization.UserFromContext(req.Context())
	if !ok {
		WriteError(writer, errors.New(errors.MissingTokenError, 401))
		return
	}

	tourID, err := primitive.ObjectIDFromHex(mux.Vars(req)["tourId"])
	if err != nil {
		WriteError(writer, errors.New(errors.NotFoundError, 404))
		return
	}

	session, err := handler.service.CreateCheckoutSession(req.Context(), tourID, user)
	if err != nil {
		handler.logger.Errorf("Checkout session for tour %s failed: %v", tourID.Hex(), err)
		WriteError(writer, err)
		return
	}

	WriteData(writer, http.StatusOK, map[string]interface{}{"session": session})
}

// ConfirmCheckout turns a paid checkout session into a booking.
func (handler *BookingHandler) ConfirmCheckout(writer http.ResponseWriter, req *http.Request) {
	var request struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil || request.SessionID == "" {
		WriteError(writer, errors.New(errors.InvalidRequestFormatError, 400))
		return
	}

	booking, err := handler.service.ConfirmCheckout(req.Context(), request.SessionID)
	if err != nil {
		WriteError(writer, err)
		return
	}

	WriteData(writer, http.StatusCreated, map[string]interface{}{"booking": booking})
}

func (handler *BookingHandler) MyBookings(writer http.ResponseWriter, req *http.Request) {
	user, ok := authorization.UserFromContext(req.Context())
	if !ok {
		WriteError(writer, errors.New(errors.MissingTokenError, 401))
		return
	}

	bookings, err := handler.bookings.GetAll(req.Context(), map[string]interface{}{"user": user.ID},
		query.New(url.Values{}, BookingRegistry, query.AliasOptions{}))
	if err != nil {
		WriteError(writer, err)
		return
	}

	WriteList(writer, "bookings", len(bookings), bookings)
}

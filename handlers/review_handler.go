package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tours_backend/authorization"
	"tours_backend/domain"
	"tours_backend/errors"
)

type ReviewHandler struct {
	*Factory[*domain.Review]
	reviews domain.ReviewStore
	logger  *log.Logger
}

func NewReviewHandler(factory *Factory[*domain.Review], reviews domain.ReviewStore, logger *log.Logger) *ReviewHandler {
	return &ReviewHandler{Factory: factory, reviews: reviews, logger: logger}
}

// CreateReview defaults the tour from the nested route and the author from
// the session; the body can only carry the review text and rating, plus
// the tour when posting on the flat route.
func (handler *ReviewHandler) CreateReview(writer http.ResponseWriter, req *http.Request) {
	user, ok := authorization.UserFromContext(req.Context())
	if !ok {
		WriteError(writer, errors.New(errors.MissingTokenError, 401))
		return
	}

	var request domain.CreateReviewRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		WriteError(writer, errors.New(errors.InvalidRequestFormatError, 400))
		return
	}

	tourHex := mux.Vars(req)["tourId"]
	if tourHex == "" {
		tourHex = request.Tour
	}
	tourID, err := primitive.ObjectIDFromHex(tourHex)
	if err != nil {
		WriteError(writer, errors.New("Review must belong to a tour", 400))
		return
	}

	review := &domain.Review{
		Review: request.Review,
		Rating: request.Rating,
		Tour:   tourID,
		User:   user.ID,
	}
	if err := review.Validate(); err != nil {
		WriteError(writer, err)
		return
	}

	if err := handler.reviews.Insert(req.Context(), review); err != nil {
		WriteError(writer, err)
		return
	}
	handler.syncRatings(req, tourID)

	WriteData(writer, http.StatusCreated, map[string]interface{}{"review": review})
}

// UpdateReview is the factory update plus a ratings recalculation on the
// parent tour.
func (handler *ReviewHandler) UpdateReview(writer http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		WriteError(writer, err)
		return
	}

	review, err := handler.reviews.GetByID(req.Context(), id)
	if err != nil {
		WriteError(writer, err)
		return
	}

	var body map[string]interface{}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		WriteError(writer, errors.New(errors.InvalidRequestFormatError, 400))
		return
	}
	// Reviews never move between tours or authors.
	update := map[string]interface{}{}
	if text, ok := body["review"]; ok {
		update["review"] = text
	}
	if rating, ok := body["rating"]; ok {
		update["rating"] = rating
	}

	if err := applyPartial(update, review); err != nil {
		WriteError(writer, errors.New(errors.InvalidRequestFormatError, 400))
		return
	}
	if err := review.Validate(); err != nil {
		WriteError(writer, err)
		return
	}

	if err := handler.reviews.Replace(req.Context(), id, review); err != nil {
		WriteError(writer, err)
		return
	}
	handler.syncRatings(req, review.Tour)

	WriteData(writer, http.StatusOK, map[string]interface{}{"review": review})
}

func (handler *ReviewHandler) DeleteReview(writer http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		WriteError(writer, err)
		return
	}

	review, err := handler.reviews.GetByID(req.Context(), id)
	if err != nil {
		WriteError(writer, err)
		return
	}

	if err := handler.reviews.Delete(req.Context(), id); err != nil {
		WriteError(writer, err)
		return
	}
	handler.syncRatings(req, review.Tour)

	writer.WriteHeader(http.StatusNoContent)
}

func (handler *ReviewHandler) syncRatings(req *http.Request, tourID primitive.ObjectID) {
	if err := handler.reviews.SyncTourRatings(req.Context(), tourID); err != nil {
		handler.logger.Errorf("Ratings sync for tour %s failed: %v", tourID.Hex(), err)
	}
}

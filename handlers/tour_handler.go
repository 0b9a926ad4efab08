package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"tours_backend/domain"
	"tours_backend/errors"
	"tours_backend/query"
)

// Earth radius per unit, used to turn a distance into radians for the
// sphere query.
const (
	earthRadiusMiles = 3963.2
	earthRadiusKm    = 6378.1
)

// Meters into the requested unit.
const (
	metersToMiles = 0.000621371
	metersToKm    = 0.001
)

// NewTour is the factory constructor for tours. A tour starts on the
// rating scale midpoint until its first review arrives.
func NewTour() *domain.Tour {
	return &domain.Tour{RatingsAverage: 4.5}
}

type TourHandler struct {
	*Factory[*domain.Tour]
	tours   domain.TourStore
	reviews domain.ReviewStore
	users   domain.UserStore
	logger  *log.Logger
}

func NewTourHandler(factory *Factory[*domain.Tour], tours domain.TourStore, reviews domain.ReviewStore, users domain.UserStore, logger *log.Logger) *TourHandler {
	factory.WithBeforeSave(func(tour *domain.Tour) {
		tour.Slug = slugify(tour.Name)
	})
	return &TourHandler{
		Factory: factory,
		tours:   tours,
		reviews: reviews,
		users:   users,
		logger:  logger,
	}
}

// TopTours pins the query features of the "5 best cheap tours" shortcut;
// the client's own query string still applies on top.
func (handler *TourHandler) TopTours() http.HandlerFunc {
	return handler.GetAll(query.AliasOptions{
		Limit:  5,
		Sort:   "-ratingsAverage,price",
		Fields: "name,price,ratingsAverage,summary,difficulty",
	})
}

// GetTour returns the tour together with its reviews and resolved guides.
func (handler *TourHandler) GetTour(writer http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		WriteError(writer, err)
		return
	}

	tour, err := handler.tours.GetByID(req.Context(), id)
	if err != nil {
		WriteError(writer, err)
		return
	}

	reviews, err := handler.reviews.GetAll(req.Context(), map[string]interface{}{"tour": tour.ID},
		query.New(url.Values{}, ReviewRegistry, query.AliasOptions{}))
	if err != nil {
		WriteError(writer, err)
		return
	}

	guides, err := handler.users.GetByIDs(req.Context(), tour.Guides)
	if err != nil {
		WriteError(writer, err)
		return
	}

	WriteData(writer, http.StatusOK, map[string]interface{}{
		"tour":    tour,
		"reviews": reviews,
		"guides":  guides,
	})
}

func (handler *TourHandler) TourStats(writer http.ResponseWriter, req *http.Request) {
	stats, err := handler.tours.Stats(req.Context())
	if err != nil {
		handler.logger.Errorf("Tour stats aggregation failed: %v", err)
		WriteError(writer, err)
		return
	}
	WriteData(writer, http.StatusOK, map[string]interface{}{"stats": stats})
}

func (handler *TourHandler) MonthlyPlan(writer http.ResponseWriter, req *http.Request) {
	year, err := strconv.Atoi(mux.Vars(req)["year"])
	if err != nil {
		WriteError(writer, errors.Newf(400, "Invalid year %q", mux.Vars(req)["year"]))
		return
	}

	plan, err := handler.tours.MonthlyPlan(req.Context(), year)
	if err != nil {
		handler.logger.Errorf("Monthly plan aggregation failed: %v", err)
		WriteError(writer, err)
		return
	}
	WriteData(writer, http.StatusOK, map[string]interface{}{"plan": plan})
}

// ToursWithin handles /tours-within/{distance}/center/{latlng}/unit/{unit}.
func (handler *TourHandler) ToursWithin(writer http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	distance, err := strconv.ParseFloat(vars["distance"], 64)
	if err != nil {
		WriteError(writer, errors.Newf(400, "Invalid distance %q", vars["distance"]))
		return
	}
	center, err := parseLatLng(vars["latlng"])
	if err != nil {
		WriteError(writer, err)
		return
	}
	earthRadius, _, err := unitFactors(vars["unit"])
	if err != nil {
		WriteError(writer, err)
		return
	}

	tours, err := handler.tours.Within(req.Context(), center, distance/earthRadius)
	if err != nil {
		WriteError(writer, err)
		return
	}

	WriteList(writer, "tours", len(tours), tours)
}

// Distances handles /distances/{latlng}/unit/{unit}.
func (handler *TourHandler) Distances(writer http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	center, err := parseLatLng(vars["latlng"])
	if err != nil {
		WriteError(writer, err)
		return
	}
	_, multiplier, err := unitFactors(vars["unit"])
	if err != nil {
		WriteError(writer, err)
		return
	}

	distances, err := handler.tours.Distances(req.Context(), center, multiplier)
	if err != nil {
		WriteError(writer, err)
		return
	}

	WriteList(writer, "distances", len(distances), distances)
}

func slugify(name string) string {
	var builder strings.Builder
	lastDash := true
	for _, c := range strings.ToLower(name) {
		switch {
		case c >= 'a' && c <= 'z' || c >= '0' && c <= '9':
			builder.WriteRune(c)
			lastDash = false
		default:
			if !lastDash {
				builder.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(builder.String(), "-")
}

func parseLatLng(latlng string) (domain.GeoPoint, error) {
	parts := strings.Split(latlng, ",")
	if len(parts) != 2 {
		return domain.GeoPoint{}, errors.New(errors.MissingCoordinatesError, 400)
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if latErr != nil || lngErr != nil {
		return domain.GeoPoint{}, errors.New(errors.MissingCoordinatesError, 400)
	}

	return domain.GeoPoint{Lat: lat, Lng: lng}, nil
}

func unitFactors(unit string) (earthRadius, multiplier float64, err error) {
	switch unit {
	case "mi":
		return earthRadiusMiles, metersToMiles, nil
	case "km":
		return earthRadiusKm, metersToKm, nil
	}
	return 0, 0, errors.New(errors.InvalidUnitError, 400)
}

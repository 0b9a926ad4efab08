package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tours_backend/domain"
	"tours_backend/query"
)

func newTourFixture() (*TourHandler, *fakeTourStore, *fakeUserStore) {
	tours := newFakeTourStore()
	users := newFakeUserStore()
	reviews := newFakeReviewStore()
	factory := NewFactory[*domain.Tour]("tour", "tours", tours, NewTour, TourRegistry, testLogger())
	return NewTourHandler(factory, tours, reviews, users, testLogger()), tours, users
}

const validTourBody = `{
	"name": "The Forest Hiker",
	"duration": 5,
	"maxGroupSize": 25,
	"difficulty": "easy",
	"ratingsAverage": 4.7,
	"price": 397,
	"summary": "Breathtaking hike through the Canadian Banff National Park"
}`

func TestCreateTour(t *testing.T) {
	handler, tours, _ := newTourFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tours", strings.NewReader(validTourBody))
	recorder := httptest.NewRecorder()
	handler.CreateOne(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var envelope struct {
		Status string `json:"status"`
		Data   struct {
			Tour domain.Tour `json:"tour"`
		} `json:"data"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if envelope.Data.Tour.Slug != "the-forest-hiker" {
		t.Errorf("expected derived slug, got %q", envelope.Data.Tour.Slug)
	}
	if len(tours.docs) != 1 {
		t.Errorf("expected the tour to be stored, have %d", len(tours.docs))
	}
}

func TestCreateTourDefaultsRating(t *testing.T) {
	handler, tours, _ := newTourFixture()

	body := `{"name":"The Sea Explorer","duration":7,"maxGroupSize":15,"difficulty":"medium","price":497,"summary":"Exploring the jaw-dropping US east coast by foot and by boat"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tours", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	handler.CreateOne(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	for _, tour := range tours.docs {
		if tour.RatingsAverage != 4.5 {
			t.Errorf("expected default rating 4.5, got %v", tour.RatingsAverage)
		}
	}
}

func TestCreateTourValidation(t *testing.T) {
	handler, _, _ := newTourFixture()

	body := `{"name":"Too short","duration":5,"maxGroupSize":25,"difficulty":"extreme","price":397,"summary":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tours", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	handler.CreateOne(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", recorder.Code)
	}
	assertFailEnvelope(t, recorder)
}

func TestGetAllToursEnvelope(t *testing.T) {
	handler, tours, _ := newTourFixture()
	tours.docs[primitive.NewObjectID()] = &domain.Tour{Name: "The Forest Hiker"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	recorder := httptest.NewRecorder()
	handler.GetAll(query.AliasOptions{})(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var envelope struct {
		Status  string `json:"status"`
		Results int    `json:"results"`
		Data    struct {
			Tours []domain.Tour `json:"tours"`
		} `json:"data"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if envelope.Results != 1 || len(envelope.Data.Tours) != 1 {
		t.Errorf("expected one tour, got results=%d len=%d", envelope.Results, len(envelope.Data.Tours))
	}
}

func TestGetAllToursRejectsUnknownFilterField(t *testing.T) {
	handler, _, _ := newTourFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours?secretTour=true", nil)
	recorder := httptest.NewRecorder()
	handler.GetAll(query.AliasOptions{})(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown filter field, got %d", recorder.Code)
	}
}

func TestGetTourNotFound(t *testing.T) {
	handler, _, _ := newTourFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours/x", nil)
	req = mux.SetURLVars(req, map[string]string{"id": primitive.NewObjectID().Hex()})
	recorder := httptest.NewRecorder()
	handler.GetTour(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", recorder.Code)
	}
}

func TestGetTourMalformedID(t *testing.T) {
	handler, _, _ := newTourFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours/not-an-id", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "not-an-id"})
	recorder := httptest.NewRecorder()
	handler.GetTour(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a malformed id, got %d", recorder.Code)
	}
}

func TestUpdateTourPartial(t *testing.T) {
	handler, tours, _ := newTourFixture()
	tour := &domain.Tour{
		ID:             primitive.NewObjectID(),
		Name:           "The Forest Hiker",
		Slug:           "the-forest-hiker",
		Duration:       5,
		MaxGroupSize:   25,
		Difficulty:     "easy",
		RatingsAverage: 4.7,
		Price:          397,
		Summary:        "Breathtaking hike",
	}
	tours.docs[tour.ID] = tour

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/tours/x", strings.NewReader(`{"price":497}`))
	req = mux.SetURLVars(req, map[string]string{"id": tour.ID.Hex()})
	recorder := httptest.NewRecorder()
	handler.UpdateOne(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if tours.docs[tour.ID].Price != 497 {
		t.Errorf("expected price updated to 497, got %v", tours.docs[tour.ID].Price)
	}
	if tours.docs[tour.ID].Duration != 5 {
		t.Errorf("expected untouched fields to survive, duration is %d", tours.docs[tour.ID].Duration)
	}
}

func TestDeleteTour(t *testing.T) {
	handler, tours, _ := newTourFixture()
	tour := &domain.Tour{ID: primitive.NewObjectID()}
	tours.docs[tour.ID] = tour

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tours/x", nil)
	req = mux.SetURLVars(req, map[string]string{"id": tour.ID.Hex()})
	recorder := httptest.NewRecorder()
	handler.DeleteOne(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recorder.Code)
	}
	if recorder.Body.Len() != 0 {
		t.Error("expected an empty body on delete")
	}

	recorder = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/tours/x", nil)
	req = mux.SetURLVars(req, map[string]string{"id": tour.ID.Hex()})
	handler.DeleteOne(recorder, req)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a second delete, got %d", recorder.Code)
	}
}

func TestToursWithinConvertsDistanceToRadians(t *testing.T) {
	handler, tours, _ := newTourFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours/tours-within/x", nil)
	req = mux.SetURLVars(req, map[string]string{
		"distance": "250",
		"latlng":   "34.111745,-118.113491",
		"unit":     "mi",
	})
	recorder := httptest.NewRecorder()
	handler.ToursWithin(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if len(tours.withinCalls) != 1 {
		t.Fatalf("expected one store call, got %d", len(tours.withinCalls))
	}
	if want := 250 / 3963.2; math.Abs(tours.withinCalls[0]-want) > 1e-9 {
		t.Errorf("expected radius %v, got %v", want, tours.withinCalls[0])
	}
}

func TestToursWithinBadInput(t *testing.T) {
	handler, _, _ := newTourFixture()

	cases := []struct {
		name string
		vars map[string]string
	}{
		{"missing longitude", map[string]string{"distance": "250", "latlng": "34.111745", "unit": "mi"}},
		{"garbage coordinates", map[string]string{"distance": "250", "latlng": "a,b", "unit": "mi"}},
		{"bad unit", map[string]string{"distance": "250", "latlng": "34.1,-118.1", "unit": "furlong"}},
		{"bad distance", map[string]string{"distance": "far", "latlng": "34.1,-118.1", "unit": "mi"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/tours/tours-within/x", nil)
			req = mux.SetURLVars(req, c.vars)
			recorder := httptest.NewRecorder()
			handler.ToursWithin(recorder, req)

			if recorder.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", recorder.Code)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"The Forest Hiker":      "the-forest-hiker",
		"  The   Sea  Explorer": "the-sea-explorer",
		"Tour #1 (2026)":        "tour-1-2026",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

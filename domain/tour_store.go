package domain

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeoPoint is a parsed "lat,lng" pair.
type GeoPoint struct {
	Lat float64
	Lng float64
}

type TourStore interface {
	CrudStore[*Tour]
	GetBySlug(ctx context.Context, slug string) (*Tour, error)
	// Stats aggregates tours by difficulty tier.
	Stats(ctx context.Context) ([]TourStats, error)
	// MonthlyPlan buckets tour start dates of a year per month.
	MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlanEntry, error)
	// Within finds tours whose start location lies inside a sphere of the
	// given radius (in radians) around center.
	Within(ctx context.Context, center GeoPoint, radius float64) ([]*Tour, error)
	// Distances computes the distance from center to every tour start
	// location, scaled by multiplier (meters to the requested unit).
	Distances(ctx context.Context, center GeoPoint, multiplier float64) ([]TourDistance, error)
}

type ReviewStore interface {
	CrudStore[*Review]
	// SyncTourRatings recomputes ratingsAverage and ratingsQuantity on the
	// tour from its current reviews.
	SyncTourRatings(ctx context.Context, tourID primitive.ObjectID) error
}

type BookingStore interface {
	CrudStore[*Booking]
}

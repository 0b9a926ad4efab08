package handlers

import "tours_backend/query"

// Per-resource registries of the fields clients may filter, sort or select
// on. Anything not listed here never reaches the database.
var (
	TourRegistry = query.Registry{
		"name":            query.Text,
		"slug":            query.Text,
		"duration":        query.Number,
		"maxGroupSize":    query.Number,
		"difficulty":      query.Text,
		"ratingsAverage":  query.Number,
		"ratingsQuantity": query.Number,
		"price":           query.Number,
		"priceDiscount":   query.Number,
		"summary":         query.Text,
		"createdAt":       query.Text,
	}

	UserRegistry = query.Registry{
		"name":      query.Text,
		"email":     query.Text,
		"role":      query.Text,
		"photo":     query.Text,
		"createdAt": query.Text,
	}

	ReviewRegistry = query.Registry{
		"review":    query.Text,
		"rating":    query.Number,
		"createdAt": query.Text,
	}

	BookingRegistry = query.Registry{
		"price":     query.Number,
		"createdAt": query.Text,
	}
)

package store

import (
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/trace"

	"tours_backend/domain"
)

const BOOKINGS_COLLECTION = "bookings"

type BookingMongoDBStore struct {
	*CrudMongoStore[*domain.Booking]
}

func NewBookingMongoDBStore(client *mongo.Client, logger *log.Logger, tracer trace.Tracer) domain.BookingStore {
	bookings := client.Database(DATABASE).Collection(BOOKINGS_COLLECTION)
	return &BookingMongoDBStore{
		CrudMongoStore: NewCrudMongoStore(bookings, bson.M{}, func() *domain.Booking { return &domain.Booking{} }, logger, tracer),
	}
}

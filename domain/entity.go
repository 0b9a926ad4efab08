package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entity is implemented by every persisted model so the generic CRUD
// store and handler factory can manage identifiers and timestamps.
type Entity interface {
	GetID() primitive.ObjectID
	SetID(id primitive.ObjectID)
	SetCreatedAt(t time.Time)
}

func (user *User) GetID() primitive.ObjectID { return user.ID }

func (user *User) SetID(id primitive.ObjectID) { user.ID = id }

func (user *User) SetCreatedAt(t time.Time) { user.CreatedAt = t }

func (tour *Tour) GetID() primitive.ObjectID { return tour.ID }

func (tour *Tour) SetID(id primitive.ObjectID) { tour.ID = id }

func (tour *Tour) SetCreatedAt(t time.Time) { tour.CreatedAt = t }

func (review *Review) GetID() primitive.ObjectID { return review.ID }

func (review *Review) SetID(id primitive.ObjectID) { review.ID = id }

func (review *Review) SetCreatedAt(t time.Time) { review.CreatedAt = t }

func (booking *Booking) GetID() primitive.ObjectID { return booking.ID }

func (booking *Booking) SetID(id primitive.ObjectID) { booking.ID = id }

func (booking *Booking) SetCreatedAt(t time.Time) { booking.CreatedAt = t }

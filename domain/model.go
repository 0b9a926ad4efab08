package domain

import (
	"encoding/json"
	"io"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleGuide     UserRole = "guide"
	RoleLeadGuide UserRole = "lead-guide"
	RoleAdmin     UserRole = "admin"
)

func (role UserRole) Valid() bool {
	switch role {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID                   primitive.ObjectID `bson:"_id" json:"id"`
	Name                 string             `bson:"name" json:"name" validate:"required,max=40"`
	Email                string             `bson:"email" json:"email" validate:"required,email"`
	Photo                string             `bson:"photo,omitempty" json:"photo,omitempty"`
	Role                 UserRole           `bson:"role" json:"role"`
	Password             string             `bson:"password" json:"-" validate:"required,strongPassword"`
	PasswordConfirm      string             `bson:"-" json:"-"`
	PasswordChangedAt    time.Time          `bson:"passwordChangedAt,omitempty" json:"-"`
	PasswordResetToken   string             `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpires time.Time          `bson:"passwordResetExpires,omitempty" json:"-"`
	Active               *bool              `bson:"active,omitempty" json:"-"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
}

// Location is a GeoJSON point. Coordinates are [longitude, latitude].
type Location struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Day         int       `bson:"day,omitempty" json:"day,omitempty"`
}

type Tour struct {
	ID              primitive.ObjectID   `bson:"_id" json:"id"`
	Name            string               `bson:"name" json:"name" validate:"required,min=10,max=40"`
	Slug            string               `bson:"slug,omitempty" json:"slug,omitempty"`
	Duration        int                  `bson:"duration" json:"duration" validate:"required,min=1"`
	MaxGroupSize    int                  `bson:"maxGroupSize" json:"maxGroupSize" validate:"required,min=1"`
	Difficulty      string               `bson:"difficulty" json:"difficulty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64              `bson:"ratingsAverage" json:"ratingsAverage" validate:"min=1,max=5"`
	RatingsQuantity int                  `bson:"ratingsQuantity" json:"ratingsQuantity"`
	Price           float64              `bson:"price" json:"price" validate:"required,gt=0"`
	PriceDiscount   float64              `bson:"priceDiscount,omitempty" json:"priceDiscount,omitempty"`
	Summary         string               `bson:"summary" json:"summary" validate:"required"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	ImageCover      string               `bson:"imageCover,omitempty" json:"imageCover,omitempty"`
	Images          []string             `bson:"images,omitempty" json:"images,omitempty"`
	StartDates      []time.Time          `bson:"startDates,omitempty" json:"startDates,omitempty"`
	StartLocation   *Location            `bson:"startLocation,omitempty" json:"startLocation,omitempty"`
	Locations       []Location           `bson:"locations,omitempty" json:"locations,omitempty"`
	Guides          []primitive.ObjectID `bson:"guides,omitempty" json:"guides,omitempty"`
	SecretTour      bool                 `bson:"secretTour,omitempty" json:"-"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
}

type Review struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Review    string             `bson:"review" json:"review" validate:"required"`
	Rating    float64            `bson:"rating" json:"rating" validate:"required,min=1,max=5"`
	Tour      primitive.ObjectID `bson:"tour" json:"tour"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Booking struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Tour      primitive.ObjectID `bson:"tour" json:"tour"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Price     float64            `bson:"price" json:"price" validate:"required,gt=0"`
	Paid      bool               `bson:"paid" json:"paid"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// TourStats is one row of the by-difficulty aggregation.
type TourStats struct {
	Difficulty string  `bson:"_id" json:"difficulty"`
	NumTours   int     `bson:"numTours" json:"numTours"`
	NumRatings int     `bson:"numRatings" json:"numRatings"`
	AvgRating  float64 `bson:"avgRating" json:"avgRating"`
	AvgPrice   float64 `bson:"avgPrice" json:"avgPrice"`
	MinPrice   float64 `bson:"minPrice" json:"minPrice"`
	MaxPrice   float64 `bson:"maxPrice" json:"maxPrice"`
}

// MonthlyPlanEntry is one row of the start-date histogram for a year.
type MonthlyPlanEntry struct {
	Month         int      `bson:"month" json:"month"`
	NumTourStarts int      `bson:"numTourStarts" json:"numTourStarts"`
	Tours         []string `bson:"tours" json:"tours"`
}

// TourDistance pairs a tour with its distance from a reference point.
type TourDistance struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Distance float64            `bson:"distance" json:"distance"`
}

type Claims struct {
	UserID    string    `json:"user_id"`
	Role      UserRole  `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("strongPassword", strongPasswordField)
	return validate
}

// Requires at least 8 characters with one uppercase letter, one lowercase
// letter, one digit and one special character.
func strongPasswordField(fl validator.FieldLevel) bool {
	password := fl.Field().String()

	hasUpperCase := false
	hasLowerCase := false
	hasDigit := false
	hasSpecial := false

	for _, c := range password {
		switch {
		case unicode.IsNumber(c):
			hasDigit = true
		case unicode.IsUpper(c):
			hasUpperCase = true
		case unicode.IsLower(c):
			hasLowerCase = true
		case unicode.Is(unicode.S, c) || unicode.IsPunct(c):
			hasSpecial = true
		}
	}

	return len(password) >= 8 && hasUpperCase && hasLowerCase && hasDigit && hasSpecial
}

func (user *User) Validate() error {
	return newValidator().Struct(user)
}

func (tour *Tour) Validate() error {
	return newValidator().Struct(tour)
}

func (review *Review) Validate() error {
	return newValidator().Struct(review)
}

func (booking *Booking) Validate() error {
	return newValidator().Struct(booking)
}

func (user *User) FromJSON(reader io.Reader) error {
	return json.NewDecoder(reader).Decode(user)
}

package store

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tours_backend/domain"
)

const REVIEWS_COLLECTION = "reviews"

type ReviewMongoDBStore struct {
	*CrudMongoStore[*domain.Review]
	reviews *mongo.Collection
	tours   *mongo.Collection
	logger  *log.Logger
	tracer  trace.Tracer
}

func NewReviewMongoDBStore(client *mongo.Client, logger *log.Logger, tracer trace.Tracer) domain.ReviewStore {
	db := client.Database(DATABASE)
	reviews := db.Collection(REVIEWS_COLLECTION)

	store := &ReviewMongoDBStore{
		CrudMongoStore: NewCrudMongoStore(reviews, bson.M{}, func() *domain.Review { return &domain.Review{} }, logger, tracer),
		reviews:        reviews,
		tours:          db.Collection(TOURS_COLLECTION),
		logger:         logger,
		tracer:         tracer,
	}
	store.createIndexes()
	return store
}

// One review per user per tour.
func (store *ReviewMongoDBStore) createIndexes() {
	_, err := store.reviews.Indexes().CreateOne(context.TODO(), mongo.IndexModel{
		Keys:    bson.D{{Key: "tour", Value: 1}, {Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		store.logger.Println(err)
	}
}

func (store *ReviewMongoDBStore) SyncTourRatings(ctx context.Context, tourID primitive.ObjectID) error {
	ctx, span := store.tracer.Start(ctx, "ReviewMongoDBStore.SyncTourRatings")
	defer span.End()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tour": tourID}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$tour",
			"nRating":   bson.M{"$sum": 1},
			"avgRating": bson.M{"$avg": "$rating"},
		}}},
	}

	cursor, err := store.reviews.Aggregate(ctx, pipeline)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		store.logger.Println(err)
		return err
	}
	defer cursor.Close(ctx)

	var results []struct {
		NRating   int     `bson:"nRating"`
		AvgRating float64 `bson:"avgRating"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// When the last review is deleted the aggregation is empty and the
	// tour falls back to its defaults.
	update := bson.M{"ratingsQuantity": 0, "ratingsAverage": 4.5}
	if len(results) > 0 {
		update = bson.M{
			"ratingsQuantity": results[0].NRating,
			"ratingsAverage":  results[0].AvgRating,
		}
	}

	_, err = store.tours.UpdateOne(ctx, bson.M{"_id": tourID}, bson.M{"$set": update})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		store.logger.Println(err)
	}
	return err
}

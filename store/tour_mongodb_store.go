package store

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tours_backend/domain"
)

const TOURS_COLLECTION = "tours"

type TourMongoDBStore struct {
	*CrudMongoStore[*domain.Tour]
	tours  *mongo.Collection
	logger *log.Logger
	tracer trace.Tracer
}

func NewTourMongoDBStore(client *mongo.Client, logger *log.Logger, tracer trace.Tracer) domain.TourStore {
	tours := client.Database(DATABASE).Collection(TOURS_COLLECTION)

	base := bson.M{"secretTour": bson.M{"$ne": true}}

	store := &TourMongoDBStore{
		CrudMongoStore: NewCrudMongoStore(tours, base, func() *domain.Tour { return &domain.Tour{} }, logger, tracer),
		tours:          tours,
		logger:         logger,
		tracer:         tracer,
	}
	store.createIndexes()
	return store
}

func (store *TourMongoDBStore) createIndexes() {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "startLocation", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{{Key: "price", Value: 1}, {Key: "ratingsAverage", Value: -1}},
		},
	}
	if _, err := store.tours.Indexes().CreateMany(context.TODO(), models); err != nil {
		store.logger.Println(err)
	}
}

func (store *TourMongoDBStore) GetBySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	ctx, span := store.tracer.Start(ctx, "TourMongoDBStore.GetBySlug")
	defer span.End()

	var tour domain.Tour
	if err := store.tours.FindOne(ctx, bson.M{"slug": slug}).Decode(&tour); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &tour, nil
}

func (store *TourMongoDBStore) Stats(ctx context.Context) ([]domain.TourStats, error) {
	ctx, span := store.tracer.Start(ctx, "TourMongoDBStore.Stats")
	defer span.End()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ratingsAverage": bson.M{"$gte": 4.5}}}},
		{{Key: "$group", Value: bson.M{
			"_id":        bson.M{"$toUpper": "$difficulty"},
			"numTours":   bson.M{"$sum": 1},
			"numRatings": bson.M{"$sum": "$ratingsQuantity"},
			"avgRating":  bson.M{"$avg": "$ratingsAverage"},
			"avgPrice":   bson.M{"$avg": "$price"},
			"minPrice":   bson.M{"$min": "$price"},
			"maxPrice":   bson.M{"$max": "$price"},
		}}},
		{{Key: "$sort", Value: bson.M{"avgPrice": 1}}},
	}

	cursor, err := store.tours.Aggregate(ctx, pipeline)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		store.logger.Println(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var stats []domain.TourStats
	if err := cursor.All(ctx, &stats); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return stats, nil
}

func (store *TourMongoDBStore) MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error) {
	ctx, span := store.tracer.Start(ctx, "TourMongoDBStore.MonthlyPlan")
	defer span.End()

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$match", Value: bson.M{"startDates": bson.M{"$gte": from, "$lte": to}}}},
		{{Key: "$group", Value: bson.M{
			"_id":           bson.M{"$month": "$startDates"},
			"numTourStarts": bson.M{"$sum": 1},
			"tours":         bson.M{"$push": "$name"},
		}}},
		{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
		{{Key: "$project", Value: bson.M{"_id": 0}}},
		{{Key: "$sort", Value: bson.M{"numTourStarts": -1}}},
		{{Key: "$limit", Value: 12}},
	}

	cursor, err := store.tours.Aggregate(ctx, pipeline)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		store.logger.Println(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var plan []domain.MonthlyPlanEntry
	if err := cursor.All(ctx, &plan); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return plan, nil
}

func (store *TourMongoDBStore) Within(ctx context.Context, center domain.GeoPoint, radius float64) ([]*domain.Tour, error) {
	ctx, span := store.tracer.Start(ctx, "TourMongoDBStore.Within")
	defer span.End()

	filter := bson.M{
		"startLocation": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{bson.A{center.Lng, center.Lat}, radius},
			},
		},
	}

	cursor, err := store.tours.Find(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		store.logger.Println(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var tours []*domain.Tour
	for cursor.Next(ctx) {
		var tour domain.Tour
		if err := cursor.Decode(&tour); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		tours = append(tours, &tour)
	}
	return tours, cursor.Err()
}

func (store *TourMongoDBStore) Distances(ctx context.Context, center domain.GeoPoint, multiplier float64) ([]domain.TourDistance, error) {
	ctx, span := store.tracer.Start(ctx, "TourMongoDBStore.Distances")
	defer span.End()

	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.M{
			"near": bson.M{
				"type":        "Point",
				"coordinates": bson.A{center.Lng, center.Lat},
			},
			"distanceField":      "distance",
			"distanceMultiplier": multiplier,
		}}},
		{{Key: "$project", Value: bson.M{"distance": 1, "name": 1}}},
	}

	cursor, err := store.tours.Aggregate(ctx, pipeline)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		store.logger.Println(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var distances []domain.TourDistance
	if err := cursor.All(ctx, &distances); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return distances, nil
}

package store

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tours_backend/domain"
	"tours_backend/query"
)

// CrudMongoStore is the shared Mongo implementation behind every resource
// store. The base filter is merged into every read so soft-deleted users
// and secret tours stay out of default queries.
type CrudMongoStore[T domain.Entity] struct {
	coll   *mongo.Collection
	base   bson.M
	newDoc func() T
	logger *log.Logger
	tracer trace.Tracer
}

func NewCrudMongoStore[T domain.Entity](coll *mongo.Collection, base bson.M, newDoc func() T, logger *log.Logger, tracer trace.Tracer) *CrudMongoStore[T] {
	return &CrudMongoStore[T]{
		coll:   coll,
		base:   base,
		newDoc: newDoc,
		logger: logger,
		tracer: tracer,
	}
}

func (s *CrudMongoStore[T]) readFilter(extra map[string]interface{}) bson.M {
	filter := bson.M{}
	for key, value := range s.base {
		filter[key] = value
	}
	for key, value := range extra {
		filter[key] = value
	}
	return filter
}

func (s *CrudMongoStore[T]) Insert(ctx context.Context, doc T) error {
	ctx, span := s.tracer.Start(ctx, "CrudMongoStore.Insert")
	defer span.End()

	if doc.GetID().IsZero() {
		doc.SetID(primitive.NewObjectID())
	}
	doc.SetCreatedAt(time.Now())

	_, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Println(err)
		return err
	}
	return nil
}

func (s *CrudMongoStore[T]) GetAll(ctx context.Context, base map[string]interface{}, features *query.Features) ([]T, error) {
	ctx, span := s.tracer.Start(ctx, "CrudMongoStore.GetAll")
	defer span.End()

	filter := s.readFilter(base)
	clientFilter, err := features.Filter()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	for key, value := range clientFilter {
		filter[key] = value
	}

	opts, err := features.Options()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Println(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []T{}
	for cursor.Next(ctx) {
		doc := s.newDoc()
		if err := cursor.Decode(doc); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return docs, nil
}

func (s *CrudMongoStore[T]) GetByID(ctx context.Context, id primitive.ObjectID) (T, error) {
	ctx, span := s.tracer.Start(ctx, "CrudMongoStore.GetByID")
	defer span.End()

	doc := s.newDoc()
	err := s.coll.FindOne(ctx, s.readFilter(bson.M{"_id": id})).Decode(doc)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			s.logger.Println(err)
		}
		span.SetStatus(codes.Error, err.Error())
		var zero T
		return zero, err
	}
	return doc, nil
}

func (s *CrudMongoStore[T]) Replace(ctx context.Context, id primitive.ObjectID, doc T) error {
	ctx, span := s.tracer.Start(ctx, "CrudMongoStore.Replace")
	defer span.End()

	result, err := s.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Println(err)
		return err
	}
	if result.MatchedCount == 0 {
		span.SetStatus(codes.Error, "no document matched")
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *CrudMongoStore[T]) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := s.tracer.Start(ctx, "CrudMongoStore.Delete")
	defer span.End()

	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Println(err)
		return err
	}
	if result.DeletedCount == 0 {
		span.SetStatus(codes.Error, "no document matched")
		return mongo.ErrNoDocuments
	}
	return nil
}

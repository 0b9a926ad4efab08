package store

import (
	"context"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tours_backend/domain"
)

const (
	DATABASE         = "tours_backend"
	USERS_COLLECTION = "users"
)

type UserMongoDBStore struct {
	*CrudMongoStore[*domain.User]
	users  *mongo.Collection
	logger *log.Logger
	tracer trace.Tracer
}

func NewUserMongoDBStore(client *mongo.Client, logger *log.Logger, tracer trace.Tracer) domain.UserStore {
	users := client.Database(DATABASE).Collection(USERS_COLLECTION)

	// Soft-deleted users disappear from default queries.
	base := bson.M{"active": bson.M{"$ne": false}}

	store := &UserMongoDBStore{
		CrudMongoStore: NewCrudMongoStore(users, base, func() *domain.User { return &domain.User{} }, logger, tracer),
		users:          users,
		logger:         logger,
		tracer:         tracer,
	}
	store.createIndexes()
	return store
}

func (store *UserMongoDBStore) createIndexes() {
	_, err := store.users.Indexes().CreateOne(context.TODO(), mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		store.logger.Println(err)
	}
}

func (store *UserMongoDBStore) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserMongoDBStore.GetByIdentifier")
	defer span.End()

	filter := bson.M{
		"$or": bson.A{
			bson.M{"name": identifier},
			bson.M{"email": strings.ToLower(identifier)},
		},
		"active": bson.M{"$ne": false},
	}

	var user domain.User
	if err := store.users.FindOne(ctx, filter).Decode(&user); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &user, nil
}

func (store *UserMongoDBStore) GetByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserMongoDBStore.GetByResetToken")
	defer span.End()

	filter := bson.M{
		"passwordResetToken":   tokenHash,
		"passwordResetExpires": bson.M{"$gt": time.Now()},
	}

	var user domain.User
	if err := store.users.FindOne(ctx, filter).Decode(&user); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &user, nil
}

func (store *UserMongoDBStore) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserMongoDBStore.GetByIDs")
	defer span.End()

	cursor, err := store.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		store.logger.Println(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*domain.User
	for cursor.Next(ctx) {
		var user domain.User
		if err := cursor.Decode(&user); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		users = append(users, &user)
	}
	return users, cursor.Err()
}

func (store *UserMongoDBStore) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := store.tracer.Start(ctx, "UserMongoDBStore.Deactivate")
	defer span.End()

	result, err := store.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		store.logger.Println(err)
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

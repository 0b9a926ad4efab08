package handlers

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"tours_backend/domain"
	"tours_backend/query"
)

// fakeCrudStore backs the handler tests with an in-memory CrudStore. The
// query features are validated the same way the mongo store validates
// them, but the resulting filter is not applied; handler tests assert the
// HTTP contract, the Mongo translation is the store's business.
type fakeCrudStore[T domain.Entity] struct {
	docs      map[primitive.ObjectID]T
	insertErr error
}

func newFakeCrudStore[T domain.Entity]() *fakeCrudStore[T] {
	return &fakeCrudStore[T]{docs: map[primitive.ObjectID]T{}}
}

func (store *fakeCrudStore[T]) Insert(_ context.Context, doc T) error {
	if store.insertErr != nil {
		return store.insertErr
	}
	doc.SetID(primitive.NewObjectID())
	doc.SetCreatedAt(time.Now())
	store.docs[doc.GetID()] = doc
	return nil
}

func (store *fakeCrudStore[T]) GetAll(_ context.Context, base map[string]interface{}, features *query.Features) ([]T, error) {
	if _, err := features.Filter(); err != nil {
		return nil, err
	}
	if _, err := features.Options(); err != nil {
		return nil, err
	}
	out := []T{}
	for _, doc := range store.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (store *fakeCrudStore[T]) GetByID(_ context.Context, id primitive.ObjectID) (T, error) {
	doc, ok := store.docs[id]
	if !ok {
		var zero T
		return zero, mongo.ErrNoDocuments
	}
	return doc, nil
}

func (store *fakeCrudStore[T]) Replace(_ context.Context, id primitive.ObjectID, doc T) error {
	if _, ok := store.docs[id]; !ok {
		return mongo.ErrNoDocuments
	}
	store.docs[id] = doc
	return nil
}

func (store *fakeCrudStore[T]) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := store.docs[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(store.docs, id)
	return nil
}

type fakeUserStore struct {
	*fakeCrudStore[*domain.User]
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{fakeCrudStore: newFakeCrudStore[*domain.User]()}
}

func (store *fakeUserStore) GetByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	for _, user := range store.docs {
		if user.Active != nil && !*user.Active {
			continue
		}
		if user.Name == identifier || user.Email == strings.ToLower(identifier) {
			return user, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (store *fakeUserStore) GetByResetToken(_ context.Context, tokenHash string) (*domain.User, error) {
	for _, user := range store.docs {
		if user.PasswordResetToken == tokenHash && user.PasswordResetExpires.After(time.Now()) {
			return user, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (store *fakeUserStore) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]*domain.User, error) {
	out := []*domain.User{}
	for _, id := range ids {
		if user, ok := store.docs[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (store *fakeUserStore) Deactivate(_ context.Context, id primitive.ObjectID) error {
	user, ok := store.docs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	inactive := false
	user.Active = &inactive
	return nil
}

type fakeTourStore struct {
	*fakeCrudStore[*domain.Tour]
	withinCalls []float64
}

func newFakeTourStore() *fakeTourStore {
	return &fakeTourStore{fakeCrudStore: newFakeCrudStore[*domain.Tour]()}
}

func (store *fakeTourStore) GetBySlug(_ context.Context, slug string) (*domain.Tour, error) {
	for _, tour := range store.docs {
		if tour.Slug == slug {
			return tour, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (store *fakeTourStore) Stats(context.Context) ([]domain.TourStats, error) {
	return []domain.TourStats{}, nil
}

func (store *fakeTourStore) MonthlyPlan(context.Context, int) ([]domain.MonthlyPlanEntry, error) {
	return []domain.MonthlyPlanEntry{}, nil
}

func (store *fakeTourStore) Within(_ context.Context, _ domain.GeoPoint, radius float64) ([]*domain.Tour, error) {
	store.withinCalls = append(store.withinCalls, radius)
	return []*domain.Tour{}, nil
}

func (store *fakeTourStore) Distances(context.Context, domain.GeoPoint, float64) ([]domain.TourDistance, error) {
	return []domain.TourDistance{}, nil
}

type fakeReviewStore struct {
	*fakeCrudStore[*domain.Review]
	synced []primitive.ObjectID
}

func newFakeReviewStore() *fakeReviewStore {
	return &fakeReviewStore{fakeCrudStore: newFakeCrudStore[*domain.Review]()}
}

func (store *fakeReviewStore) SyncTourRatings(_ context.Context, tourID primitive.ObjectID) error {
	store.synced = append(store.synced, tourID)
	return nil
}

type fakePhotoStorage struct {
	saved map[string][]byte
}

func (storage *fakePhotoStorage) Save(_ context.Context, filename string, data []byte) (string, error) {
	if storage.saved == nil {
		storage.saved = map[string][]byte{}
	}
	storage.saved[filename] = data
	return filename, nil
}

type fakeMailer struct {
	welcomes []string
	resets   []string
	sendErr  error
}

func (mailer *fakeMailer) SendPasswordReset(to, _, _ string) error {
	if mailer.sendErr != nil {
		return mailer.sendErr
	}
	mailer.resets = append(mailer.resets, to)
	return nil
}

func (mailer *fakeMailer) SendWelcome(to, _ string) error {
	if mailer.sendErr != nil {
		return mailer.sendErr
	}
	mailer.welcomes = append(mailer.welcomes, to)
	return nil
}

type fakePaymentClient struct {
	sessions map[string]*domain.CheckoutSession
}

func (client *fakePaymentClient) CreateCheckoutSession(_ context.Context, tour *domain.Tour, user *domain.User) (*domain.CheckoutSession, error) {
	session := &domain.CheckoutSession{
		ID:       primitive.NewObjectID().Hex(),
		URL:      "https://checkout.example.com/session",
		TourID:   tour.ID.Hex(),
		UserID:   user.ID.Hex(),
		Amount:   tour.Price,
		Currency: "usd",
	}
	if client.sessions == nil {
		client.sessions = map[string]*domain.CheckoutSession{}
	}
	client.sessions[session.ID] = session
	return session, nil
}

func (client *fakePaymentClient) GetSession(_ context.Context, sessionID string) (*domain.CheckoutSession, error) {
	session, ok := client.sessions[sessionID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return session, nil
}

// duplicateKeyErr mimics the driver error for a violated unique index.
var duplicateKeyErr = mongo.WriteException{
	WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}},
}

var errSMTPDown = stderrors.New("dial tcp: connection refused")

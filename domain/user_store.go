package domain

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"tours_backend/query"
)

// CrudStore is the storage contract shared by every resource. The generic
// handler factory is parameterized over it.
type CrudStore[T Entity] interface {
	Insert(ctx context.Context, doc T) error
	GetAll(ctx context.Context, base map[string]interface{}, features *query.Features) ([]T, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (T, error)
	Replace(ctx context.Context, id primitive.ObjectID, doc T) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type UserStore interface {
	CrudStore[*User]
	// GetByIdentifier matches name or lowercased email, password included,
	// inactive users excluded.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByResetToken(ctx context.Context, tokenHash string) (*User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*User, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) error
}

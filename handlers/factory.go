package handlers

import (
	"encoding/json"
	"net/http"
	"reflect"
	"time"

	"github.com/gorilla/mux"
	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tours_backend/domain"
	"tours_backend/errors"
	"tours_backend/query"
)

// Resource is satisfied by every persisted model the factory manages.
type Resource interface {
	domain.Entity
	Validate() error
}

// Factory bundles the generic CRUD handlers for one resource. Per-resource
// handlers embed one and add their custom endpoints on top.
type Factory[T Resource] struct {
	resource string
	plural   string
	store    domain.CrudStore[T]
	newDoc   func() T
	registry query.Registry
	// beforeSave runs on create and update, after decoding and before
	// validation. Used for derived fields such as the tour slug.
	beforeSave func(T)
	// blockedFields are rejected in update bodies with a 400.
	blockedFields []string
	logger        *log.Logger
}

func NewFactory[T Resource](resource, plural string, store domain.CrudStore[T], newDoc func() T, registry query.Registry, logger *log.Logger) *Factory[T] {
	return &Factory[T]{
		resource: resource,
		plural:   plural,
		store:    store,
		newDoc:   newDoc,
		registry: registry,
		logger:   logger,
	}
}

func (f *Factory[T]) WithBeforeSave(hook func(T)) *Factory[T] {
	f.beforeSave = hook
	return f
}

func (f *Factory[T]) WithBlockedFields(fields ...string) *Factory[T] {
	f.blockedFields = fields
	return f
}

func pathID(req *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(req)["id"])
	if err != nil {
		return primitive.NilObjectID, errors.New(errors.NotFoundError, 404)
	}
	return id, nil
}

func (f *Factory[T]) CreateOne(writer http.ResponseWriter, req *http.Request) {
	doc := f.newDoc()
	if err := json.NewDecoder(req.Body).Decode(doc); err != nil {
		WriteError(writer, errors.New(errors.InvalidRequestFormatError, 400))
		return
	}

	if f.beforeSave != nil {
		f.beforeSave(doc)
	}
	if err := doc.Validate(); err != nil {
		WriteError(writer, err)
		return
	}

	if err := f.store.Insert(req.Context(), doc); err != nil {
		f.logger.Errorf("Insert %s failed: %v", f.resource, err)
		WriteError(writer, err)
		return
	}

	WriteData(writer, http.StatusCreated, map[string]interface{}{f.resource: doc})
}

// GetAll lists the resource. An alias pins sort, projection or page size
// before the client's query string is applied, which is how shortcut
// routes such as the top tours endpoint are built.
func (f *Factory[T]) GetAll(alias query.AliasOptions) http.HandlerFunc {
	return func(writer http.ResponseWriter, req *http.Request) {
		base := map[string]interface{}{}
		if tourID, ok := mux.Vars(req)["tourId"]; ok {
			oid, err := primitive.ObjectIDFromHex(tourID)
			if err != nil {
				WriteError(writer, errors.New(errors.NotFoundError, 404))
				return
			}
			base["tour"] = oid
		}

		features := query.FromRequest(req, f.registry, alias)
		docs, err := f.store.GetAll(req.Context(), base, features)
		if err != nil {
			f.logger.Errorf("GetAll %s failed: %v", f.plural, err)
			WriteError(writer, err)
			return
		}

		WriteList(writer, f.plural, len(docs), docs)
	}
}

func (f *Factory[T]) GetOne(writer http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		WriteError(writer, err)
		return
	}

	doc, err := f.store.GetByID(req.Context(), id)
	if err != nil {
		WriteError(writer, err)
		return
	}

	WriteData(writer, http.StatusOK, map[string]interface{}{f.resource: doc})
}

// UpdateOne applies a partial update: the existing document is loaded,
// the body's fields are layered on top and the result is validated and
// replaced as a whole.
func (f *Factory[T]) UpdateOne(writer http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		WriteError(writer, err)
		return
	}

	doc, err := f.store.GetByID(req.Context(), id)
	if err != nil {
		WriteError(writer, err)
		return
	}

	var body map[string]interface{}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		WriteError(writer, errors.New(errors.InvalidRequestFormatError, 400))
		return
	}
	delete(body, "id")
	delete(body, "_id")
	delete(body, "createdAt")
	for _, field := range f.blockedFields {
		if _, ok := body[field]; ok {
			WriteError(writer, errors.Newf(400, "Field %q can not be updated on this route", field))
			return
		}
	}

	if err := applyPartial(body, doc); err != nil {
		WriteError(writer, errors.New(errors.InvalidRequestFormatError, 400))
		return
	}

	if f.beforeSave != nil {
		f.beforeSave(doc)
	}
	if err := doc.Validate(); err != nil {
		WriteError(writer, err)
		return
	}

	if err := f.store.Replace(req.Context(), id, doc); err != nil {
		f.logger.Errorf("Replace %s failed: %v", f.resource, err)
		WriteError(writer, err)
		return
	}

	WriteData(writer, http.StatusOK, map[string]interface{}{f.resource: doc})
}

func (f *Factory[T]) DeleteOne(writer http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		WriteError(writer, err)
		return
	}

	if err := f.store.Delete(req.Context(), id); err != nil {
		WriteError(writer, err)
		return
	}

	writer.WriteHeader(http.StatusNoContent)
}

// applyPartial decodes a JSON body map onto an existing document, matching
// keys by json tag and converting hex strings and RFC 3339 timestamps into
// ObjectIDs and times.
func applyPartial(body map[string]interface{}, doc interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           doc,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToObjectIDHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(body)
}

func stringToObjectIDHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(primitive.ObjectID{}) {
		return data, nil
	}
	return primitive.ObjectIDFromHex(data.(string))
}

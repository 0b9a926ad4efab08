package query

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tours_backend/errors"
)

const (
	defaultLimit = 100
	defaultSort  = "createdAt"
)

// Kind describes how values for a registered field are coerced.
type Kind int

const (
	Text Kind = iota
	Number
)

// Registry is the set of fields a client may filter, sort or select on for
// one entity. Unknown fields are rejected instead of being passed through
// to the database.
type Registry map[string]Kind

// AliasOptions are fixed overrides injected by canned routes like
// "top-5-cheap". They take precedence over the query string.
type AliasOptions struct {
	Sort   string
	Fields string
	Limit  int64
}

type Op string

const (
	OpGte Op = "gte"
	OpGt  Op = "gt"
	OpLte Op = "lte"
	OpLt  Op = "lt"
)

// Filter is a tagged filter expression, either Equals or Range.
type Filter interface {
	field() string
}

type Equals struct {
	Field string
	Value interface{}
}

func (e Equals) field() string { return e.Field }

type Range struct {
	Field string
	Op    Op
	Value float64
}

func (r Range) field() string { return r.Field }

var operatorKey = regexp.MustCompile(`^(.+)\[(gte|gt|lte|lt)\]$`)

// Features translates a raw query string into a filtered, sorted,
// field-limited and paginated Mongo query. None of the stages perform I/O;
// the store runs the find exactly once with the produced filter and options.
type Features struct {
	values   url.Values
	alias    AliasOptions
	registry Registry
}

func New(values url.Values, registry Registry, alias AliasOptions) *Features {
	return &Features{
		values:   values,
		alias:    alias,
		registry: registry,
	}
}

func FromRequest(req *http.Request, registry Registry, alias AliasOptions) *Features {
	return New(req.URL.Query(), registry, alias)
}

// Filters builds the typed filter expressions from the query string.
// Control keys (page, sort, limit, fields) are skipped. A key of the form
// field[op] becomes a Range, everything else an Equals with values coerced
// by the registered field kind.
func (f *Features) Filters() ([]Filter, error) {
	var filters []Filter

	for key, vals := range f.values {
		switch key {
		case "page", "sort", "limit", "fields":
			continue
		}
		if len(vals) == 0 {
			continue
		}
		value := vals[0]

		if match := operatorKey.FindStringSubmatch(key); match != nil {
			field, op := match[1], Op(match[2])
			kind, ok := f.registry[field]
			if !ok {
				return nil, errors.Newf(400, "Unknown field: %s", field)
			}
			if kind != Number {
				return nil, errors.Newf(400, "Field %s does not support range operators", field)
			}
			number, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, errors.Newf(400, "Invalid numeric value for %s: %s", field, value)
			}
			filters = append(filters, Range{Field: field, Op: op, Value: number})
			continue
		}

		kind, ok := f.registry[key]
		if !ok {
			return nil, errors.Newf(400, "Unknown field: %s", key)
		}
		if kind == Number {
			number, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, errors.Newf(400, "Invalid numeric value for %s: %s", key, value)
			}
			filters = append(filters, Equals{Field: key, Value: number})
		} else {
			filters = append(filters, Equals{Field: key, Value: value})
		}
	}

	return filters, nil
}

// Filter renders the filter expressions as a bson document. Range
// expressions on the same field are merged into one operator document, so
// price[gte]=100&price[lte]=500 becomes {price: {$gte: 100, $lte: 500}}.
func (f *Features) Filter() (bson.M, error) {
	filters, err := f.Filters()
	if err != nil {
		return nil, err
	}

	out := bson.M{}
	for _, filter := range filters {
		switch expr := filter.(type) {
		case Equals:
			out[expr.Field] = expr.Value
		case Range:
			ops, ok := out[expr.Field].(bson.M)
			if !ok {
				ops = bson.M{}
				out[expr.Field] = ops
			}
			ops["$"+string(expr.Op)] = expr.Value
		}
	}
	return out, nil
}

// Sort returns the sort document. A leading '-' means descending, the
// default is most recently created first, and alias options win over the
// query string.
func (f *Features) Sort() (bson.D, error) {
	sortValue := f.alias.Sort
	if sortValue == "" {
		sortValue = f.values.Get("sort")
	}
	if sortValue == "" {
		return bson.D{{Key: defaultSort, Value: -1}}, nil
	}

	var sort bson.D
	for _, field := range strings.Split(sortValue, ",") {
		direction := 1
		if strings.HasPrefix(field, "-") {
			direction = -1
			field = field[1:]
		}
		if _, ok := f.registry[field]; !ok && field != defaultSort {
			return nil, errors.Newf(400, "Unknown sort field: %s", field)
		}
		sort = append(sort, bson.E{Key: field, Value: direction})
	}
	return sort, nil
}

// Projection returns the inclusion projection, or nil when the client did
// not limit fields.
func (f *Features) Projection() (bson.D, error) {
	fieldsValue := f.alias.Fields
	if fieldsValue == "" {
		fieldsValue = f.values.Get("fields")
	}
	if fieldsValue == "" {
		return nil, nil
	}

	var projection bson.D
	for _, field := range strings.Split(fieldsValue, ",") {
		if _, ok := f.registry[field]; !ok {
			return nil, errors.Newf(400, "Unknown field: %s", field)
		}
		projection = append(projection, bson.E{Key: field, Value: 1})
	}
	return projection, nil
}

// Pagination returns skip and limit. Page and limit default to 1 and 100,
// must be positive integers, and the alias limit wins. A page past the end
// of the collection is not an error; it simply yields an empty result.
func (f *Features) Pagination() (skip, limit int64, err error) {
	page := int64(1)
	if raw := f.values.Get("page"); raw != "" {
		page, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || page < 1 {
			return 0, 0, errors.Newf(400, "Invalid page: %s", raw)
		}
	}

	limit = int64(defaultLimit)
	if raw := f.values.Get("limit"); raw != "" {
		limit, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 1 {
			return 0, 0, errors.Newf(400, "Invalid limit: %s", raw)
		}
	}
	if f.alias.Limit > 0 {
		limit = f.alias.Limit
	}

	return (page - 1) * limit, limit, nil
}

// Options assembles sort, projection and pagination into find options.
func (f *Features) Options() (*options.FindOptions, error) {
	sort, err := f.Sort()
	if err != nil {
		return nil, err
	}
	projection, err := f.Projection()
	if err != nil {
		return nil, err
	}
	skip, limit, err := f.Pagination()
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(sort).SetSkip(skip).SetLimit(limit)
	if projection != nil {
		opts.SetProjection(projection)
	}
	return opts, nil
}

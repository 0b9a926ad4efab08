package query

import (
	"net/url"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

var testRegistry = Registry{
	"name":           Text,
	"difficulty":     Text,
	"price":          Number,
	"ratingsAverage": Number,
	"duration":       Number,
}

func TestFilterMergesRangeOperators(t *testing.T) {
	values := url.Values{}
	values.Set("price[gte]", "100")
	values.Set("price[lte]", "500")
	values.Set("difficulty", "easy")

	filter, err := New(values, testRegistry, AliasOptions{}).Filter()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filter["difficulty"] != "easy" {
		t.Errorf("expected difficulty easy, got %v", filter["difficulty"])
	}
	price, ok := filter["price"].(bson.M)
	if !ok {
		t.Fatalf("expected price operator document, got %T", filter["price"])
	}
	if price["$gte"] != 100.0 || price["$lte"] != 500.0 {
		t.Errorf("unexpected price bounds: %v", price)
	}
}

func TestFilterCoercesNumericEquality(t *testing.T) {
	values := url.Values{}
	values.Set("duration", "5")

	filter, err := New(values, testRegistry, AliasOptions{}).Filter()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter["duration"] != 5.0 {
		t.Errorf("expected duration coerced to 5.0, got %v (%T)", filter["duration"], filter["duration"])
	}
}

func TestFilterRejectsUnknownAndMalformedFields(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown field", "admin", "true"},
		{"unknown range field", "secret[gte]", "1"},
		{"range on text field", "name[gte]", "a"},
		{"non-numeric range value", "price[gte]", "cheap"},
		{"non-numeric equality on number field", "duration", "five"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			values := url.Values{}
			values.Set(c.key, c.value)
			if _, err := New(values, testRegistry, AliasOptions{}).Filter(); err == nil {
				t.Error("expected an error, got none")
			}
		})
	}
}

func TestSortDefaultsToNewestFirst(t *testing.T) {
	sort, err := New(url.Values{}, testRegistry, AliasOptions{}).Sort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sort) != 1 || sort[0].Key != "createdAt" || sort[0].Value != -1 {
		t.Errorf("unexpected default sort: %v", sort)
	}
}

func TestSortParsesDirections(t *testing.T) {
	values := url.Values{}
	values.Set("sort", "-price,name")

	sort, err := New(values, testRegistry, AliasOptions{}).Sort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := bson.D{{Key: "price", Value: -1}, {Key: "name", Value: 1}}
	if len(sort) != len(want) {
		t.Fatalf("expected %d sort keys, got %d", len(want), len(sort))
	}
	for i := range want {
		if sort[i] != want[i] {
			t.Errorf("sort[%d] = %v, want %v", i, sort[i], want[i])
		}
	}
}

func TestSortRejectsUnknownField(t *testing.T) {
	values := url.Values{}
	values.Set("sort", "role")

	if _, err := New(values, testRegistry, AliasOptions{}).Sort(); err == nil {
		t.Error("expected an error for unknown sort field")
	}
}

func TestProjectionBuildsInclusion(t *testing.T) {
	values := url.Values{}
	values.Set("fields", "name,price")

	projection, err := New(values, testRegistry, AliasOptions{}).Projection()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(projection) != 2 || projection[0].Key != "name" || projection[1].Key != "price" {
		t.Errorf("unexpected projection: %v", projection)
	}
}

func TestPaginationDefaultsAndSkip(t *testing.T) {
	skip, limit, err := New(url.Values{}, testRegistry, AliasOptions{}).Pagination()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skip != 0 || limit != 100 {
		t.Errorf("expected defaults 0/100, got %d/%d", skip, limit)
	}

	values := url.Values{}
	values.Set("page", "3")
	values.Set("limit", "10")
	skip, limit, err = New(values, testRegistry, AliasOptions{}).Pagination()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skip != 20 || limit != 10 {
		t.Errorf("expected 20/10, got %d/%d", skip, limit)
	}
}

func TestPaginationRejectsBadInput(t *testing.T) {
	for _, raw := range []string{"0", "-1", "abc"} {
		values := url.Values{}
		values.Set("page", raw)
		if _, _, err := New(values, testRegistry, AliasOptions{}).Pagination(); err == nil {
			t.Errorf("expected error for page %q", raw)
		}
	}
}

func TestAliasOverridesQueryString(t *testing.T) {
	values := url.Values{}
	values.Set("sort", "price")
	values.Set("limit", "50")

	features := New(values, testRegistry, AliasOptions{Sort: "-ratingsAverage", Limit: 5})

	sort, err := features.Sort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sort[0].Key != "ratingsAverage" || sort[0].Value != -1 {
		t.Errorf("alias sort not applied: %v", sort)
	}

	_, limit, err := features.Pagination()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 5 {
		t.Errorf("alias limit not applied, got %d", limit)
	}
}

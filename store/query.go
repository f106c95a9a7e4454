package store

import (
	"net/url"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// sortFields maps API sort keys onto document fields. Unknown keys are
// ignored rather than passed through to the database.
var sortFields = map[string]string{
	"name":      "name",
	"brand":     "brand",
	"category":  "category",
	"price":     "price.discounted",
	"stock":     "stock",
	"likes":     "likes",
	"views":     "views",
	"rating":    "ratings.average",
	"createdAt": "created_at",
}

// ProductQuery captures the filtering, sorting and pagination parameters
// of a product listing. A zero field means no constraint.
type ProductQuery struct {
	Search   string
	Category string
	Brand    string
	MinPrice *float64
	MaxPrice *float64
	SortBy   string
	Order    string // "asc" (default) or "desc"
	Page     int64
	Limit    int64
}

// ParseProductQuery builds a ProductQuery from listing query parameters.
func ParseProductQuery(values url.Values) ProductQuery {
	q := ProductQuery{
		Search:   values.Get("search"),
		Category: values.Get("category"),
		Brand:    values.Get("brand"),
		SortBy:   values.Get("sortBy"),
		Order:    values.Get("order"),
		Page:     parsePositive(values.Get("page"), DefaultPage),
		Limit:    parsePositive(values.Get("limit"), DefaultLimit),
	}
	if v, err := strconv.ParseFloat(values.Get("minPrice"), 64); err == nil {
		q.MinPrice = &v
	}
	if v, err := strconv.ParseFloat(values.Get("maxPrice"), 64); err == nil {
		q.MaxPrice = &v
	}
	return q
}

func parsePositive(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Filter builds the Mongo filter document. Price bounds are inclusive
// and apply to the discounted price.
func (q ProductQuery) Filter() bson.M {
	filter := bson.M{}
	if q.Search != "" {
		filter["name"] = bson.M{"$regex": q.Search, "$options": "i"}
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Brand != "" {
		filter["brand"] = q.Brand
	}
	price := bson.M{}
	if q.MinPrice != nil {
		price["$gte"] = *q.MinPrice
	}
	if q.MaxPrice != nil {
		price["$lte"] = *q.MaxPrice
	}
	if len(price) > 0 {
		filter["price.discounted"] = price
	}
	return filter
}

// Sort builds the sort document, or nil when no recognized sort key was
// requested. Direction defaults to ascending.
func (q ProductQuery) Sort() bson.D {
	field, ok := sortFields[q.SortBy]
	if !ok {
		return nil
	}
	dir := 1
	if q.Order == "desc" {
		dir = -1
	}
	return bson.D{{Key: field, Value: dir}}
}

// Skip returns the number of documents to skip for the requested page.
func (q ProductQuery) Skip() int64 {
	page := q.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	return (page - 1) * limit
}

// TotalPages computes ceil(total/limit).
func TotalPages(total, limit int64) int64 {
	if limit < 1 {
		limit = DefaultLimit
	}
	if total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is a single user review embedded in a product document.
type Review struct {
	User      primitive.ObjectID `bson:"user,omitempty" json:"user,omitempty"`
	Rating    int                `bson:"rating" json:"rating" validate:"required,min=1,max=5"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// Price carries the original and discounted price of a product.
type Price struct {
	Original           float64 `bson:"original" json:"original" validate:"required,gt=0"`
	Discounted         float64 `bson:"discounted" json:"discounted" validate:"required,gt=0"`
	DiscountPercentage float64 `bson:"discount_percentage,omitempty" json:"discountPercentage,omitempty"`
}

// Weight is the product weight with its unit (defaults to "mg").
type Weight struct {
	Value float64 `bson:"value" json:"value" validate:"required,gt=0"`
	Unit  string  `bson:"unit" json:"unit"`
}

// Ratings aggregates the embedded reviews. Average and Count are derived
// from Reviews and recomputed on every review insertion.
type Ratings struct {
	Average float64  `bson:"average" json:"average"`
	Count   int      `bson:"count" json:"count"`
	Reviews []Review `bson:"reviews" json:"reviews"`
}

// Delivery describes delivery availability for a product.
type Delivery struct {
	TimeRange string `bson:"time_range" json:"timeRange"`
	Available bool   `bson:"available" json:"available"`
}

// Product is a catalog record.
type Product struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Name            string               `bson:"name" json:"name" validate:"required"`
	Brand           string               `bson:"brand" json:"brand" validate:"required"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	Category        string               `bson:"category" json:"category" validate:"required"`
	Price           Price                `bson:"price" json:"price"`
	Stock           int                  `bson:"stock" json:"stock" validate:"min=0"`
	Weight          Weight               `bson:"weight" json:"weight"`
	Ratings         Ratings              `bson:"ratings" json:"ratings"`
	Images          []string             `bson:"images" json:"images" validate:"required,min=1,dive,required"`
	SimilarProducts []primitive.ObjectID `bson:"similar_products" json:"similarProducts"`
	Views           int64                `bson:"views" json:"views"`
	Likes           int64                `bson:"likes" json:"likes"`
	Delivery        Delivery             `bson:"delivery" json:"delivery"`
	Tags            []string             `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt       time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time            `bson:"updated_at" json:"updatedAt"`
}

// ApplyDefaults fills schema defaults on a freshly decoded product. A
// fully zero Delivery is treated as unset.
func (p *Product) ApplyDefaults() {
	if p.Weight.Unit == "" {
		p.Weight.Unit = "mg"
	}
	if p.Delivery.TimeRange == "" && !p.Delivery.Available {
		p.Delivery = Delivery{TimeRange: "12-24 HOURS", Available: true}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.SimilarProducts == nil {
		p.SimilarProducts = []primitive.ObjectID{}
	}
	if p.Ratings.Reviews == nil {
		p.Ratings.Reviews = []Review{}
	}
}

// HasSimilar reports whether id is already linked as a similar product.
func (p *Product) HasSimilar(id primitive.ObjectID) bool {
	for _, s := range p.SimilarProducts {
		if s == id {
			return true
		}
	}
	return false
}

// CategoryStats is one row of the per-category aggregation.
type CategoryStats struct {
	Category      string  `bson:"_id" json:"category"`
	TotalProducts int64   `bson:"total_products" json:"totalProducts"`
	AveragePrice  float64 `bson:"average_price" json:"averagePrice"`
	AverageRating float64 `bson:"average_rating" json:"averageRating"`
}

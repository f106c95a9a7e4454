package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-pharmacy/models"
)

// ProductStore persists catalog records. Lookup methods return a nil
// product with a nil error when the id does not exist; mutating methods
// report whether a document matched.
type ProductStore interface {
	Insert(ctx context.Context, p *models.Product) error
	List(ctx context.Context, q ProductQuery) ([]models.Product, int64, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID, skip, limit int64) ([]models.Product, error)
	Replace(ctx context.Context, id primitive.ObjectID, p *models.Product) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	AddReview(ctx context.Context, id primitive.ObjectID, review models.Review) (*models.Product, error)
	IncrementLikes(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	AddSimilar(ctx context.Context, id, similarID primitive.ObjectID) (SimilarOutcome, error)
	Popular(ctx context.Context, limit int64) ([]models.Product, error)
	Stats(ctx context.Context) ([]models.CategoryStats, error)
}

type MongoProductStore struct {
	collection *mongo.Collection
}

func NewProductStore(db *mongo.Database) *MongoProductStore {
	return &MongoProductStore{collection: db.Collection("products")}
}

func (s *MongoProductStore) Insert(ctx context.Context, p *models.Product) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	res, err := s.collection.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

// List returns one page of matching products plus the total match count
// independent of pagination.
func (s *MongoProductStore) List(ctx context.Context, q ProductQuery) ([]models.Product, int64, error) {
	filter := q.Filter()

	opts := options.Find().SetSkip(q.Skip()).SetLimit(q.Limit)
	if sort := q.Sort(); sort != nil {
		opts.SetSort(sort)
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}

	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *MongoProductStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoProductStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID, skip, limit int64) ([]models.Product, error) {
	opts := options.Find().SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *MongoProductStore) Replace(ctx context.Context, id primitive.ObjectID, p *models.Product) (bool, error) {
	p.ID = id
	p.UpdatedAt = time.Now().UTC()
	res, err := s.collection.ReplaceOne(ctx, bson.M{"_id": id}, p)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoProductStore) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// AddReview appends the review and recomputes ratings.average and
// ratings.count in a single pipeline update, so concurrent reviews on
// the same product cannot lose each other.
func (s *MongoProductStore) AddReview(ctx context.Context, id primitive.ObjectID, review models.Review) (*models.Product, error) {
	review.CreatedAt = time.Now().UTC()
	return s.findOneAndUpdate(ctx, id, reviewAppendPipeline(review))
}

// reviewAppendPipeline builds the two-stage update that pushes the
// review and refreshes the rating aggregates. The review is wrapped in
// $literal: inside a pipeline update documents are expressions, and
// without it a comment such as "$name" would be resolved as a field
// path instead of stored verbatim.
func reviewAppendPipeline(review models.Review) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"ratings.reviews": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$ratings.reviews", bson.A{}}},
				bson.M{"$literal": bson.A{review}},
			}},
			"updated_at": review.CreatedAt,
		}}},
		{{Key: "$set", Value: bson.M{
			"ratings.count":   bson.M{"$size": "$ratings.reviews"},
			"ratings.average": bson.M{"$avg": "$ratings.reviews.rating"},
		}}},
	}
}

// IncrementLikes bumps the like counter atomically.
func (s *MongoProductStore) IncrementLikes(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	update := bson.M{
		"$inc": bson.M{"likes": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	return s.findOneAndUpdate(ctx, id, update)
}

func (s *MongoProductStore) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update interface{}) (*models.Product, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Product
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SimilarOutcome reports how an AddSimilar call resolved.
type SimilarOutcome int

const (
	SimilarAdded SimilarOutcome = iota
	SimilarDuplicate
	SimilarMissing
)

// AddSimilar pushes similarID onto the similar set. The filter excludes
// documents already containing the reference, which keeps the no-duplicate
// invariant under concurrent requests. When nothing matched, a follow-up
// lookup distinguishes a duplicate reference from a product that was
// deleted concurrently.
func (s *MongoProductStore) AddSimilar(ctx context.Context, id, similarID primitive.ObjectID) (SimilarOutcome, error) {
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": id, "similar_products": bson.M{"$ne": similarID}},
		bson.M{
			"$push": bson.M{"similar_products": similarID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return SimilarMissing, err
	}
	if res.ModifiedCount > 0 {
		return SimilarAdded, nil
	}
	count, err := s.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return SimilarMissing, err
	}
	if count == 0 {
		return SimilarMissing, nil
	}
	return SimilarDuplicate, nil
}

// Popular returns the most liked products, ties broken by views.
func (s *MongoProductStore) Popular(ctx context.Context, limit int64) ([]models.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "likes", Value: -1}, {Key: "views", Value: -1}}).
		SetLimit(limit)
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Stats groups all products by category.
func (s *MongoProductStore) Stats(ctx context.Context) ([]models.CategoryStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":            "$category",
			"total_products": bson.M{"$sum": 1},
			"average_price":  bson.M{"$avg": "$price.discounted"},
			"average_rating": bson.M{"$avg": "$ratings.average"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stats := []models.CategoryStats{}
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

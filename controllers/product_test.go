package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-pharmacy/models"
	"go-pharmacy/store"
)

// fakeProductStore mirrors the Mongo store semantics in memory,
// including the derived-ratings invariant and atomic like increments.
type fakeProductStore struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*models.Product
	order    []primitive.ObjectID
}

var _ store.ProductStore = (*fakeProductStore)(nil)

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{products: map[primitive.ObjectID]*models.Product{}}
}

func (f *fakeProductStore) Insert(ctx context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	f.products[p.ID] = &cp
	f.order = append(f.order, p.ID)
	return nil
}

func (f *fakeProductStore) matches(p *models.Product, q store.ProductQuery) bool {
	if q.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search)) {
		return false
	}
	if q.Category != "" && p.Category != q.Category {
		return false
	}
	if q.Brand != "" && p.Brand != q.Brand {
		return false
	}
	if q.MinPrice != nil && p.Price.Discounted < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && p.Price.Discounted > *q.MaxPrice {
		return false
	}
	return true
}

func (f *fakeProductStore) List(ctx context.Context, q store.ProductQuery) ([]models.Product, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := []models.Product{}
	for _, id := range f.order {
		if p := f.products[id]; f.matches(p, q) {
			matched = append(matched, *p)
		}
	}
	total := int64(len(matched))
	skip := q.Skip()
	if skip > total {
		skip = total
	}
	end := skip + q.Limit
	if end > total {
		end = total
	}
	return matched[skip:end], total, nil
}

func (f *fakeProductStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID, skip, limit int64) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := []models.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			found = append(found, *p)
		}
	}
	total := int64(len(found))
	if skip > total {
		skip = total
	}
	end := total
	if limit > 0 && skip+limit < total {
		end = skip + limit
	}
	return found[skip:end], nil
}

func (f *fakeProductStore) Replace(ctx context.Context, id primitive.ObjectID, p *models.Product) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return false, nil
	}
	p.ID = id
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	f.products[id] = &cp
	return true, nil
}

func (f *fakeProductStore) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return false, nil
	}
	delete(f.products, id)
	for i, oid := range f.order {
		if oid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (f *fakeProductStore) AddReview(ctx context.Context, id primitive.ObjectID, review models.Review) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	review.CreatedAt = time.Now().UTC()
	p.Ratings.Reviews = append(p.Ratings.Reviews, review)
	sum := 0
	for _, r := range p.Ratings.Reviews {
		sum += r.Rating
	}
	p.Ratings.Count = len(p.Ratings.Reviews)
	p.Ratings.Average = float64(sum) / float64(p.Ratings.Count)
	cp := *p
	return &cp, nil
}

func (f *fakeProductStore) IncrementLikes(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	p.Likes++
	cp := *p
	return &cp, nil
}

func (f *fakeProductStore) AddSimilar(ctx context.Context, id, similarID primitive.ObjectID) (store.SimilarOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return store.SimilarMissing, nil
	}
	if p.HasSimilar(similarID) {
		return store.SimilarDuplicate, nil
	}
	p.SimilarProducts = append(p.SimilarProducts, similarID)
	return store.SimilarAdded, nil
}

func (f *fakeProductStore) Popular(ctx context.Context, limit int64) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := []models.Product{}
	for _, id := range f.order {
		all = append(all, *f.products[id])
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Likes != all[j].Likes {
			return all[i].Likes > all[j].Likes
		}
		return all[i].Views > all[j].Views
	})
	if int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeProductStore) Stats(ctx context.Context) ([]models.CategoryStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type agg struct {
		count  int64
		price  float64
		rating float64
	}
	byCategory := map[string]*agg{}
	for _, id := range f.order {
		p := f.products[id]
		a, ok := byCategory[p.Category]
		if !ok {
			a = &agg{}
			byCategory[p.Category] = a
		}
		a.count++
		a.price += p.Price.Discounted
		a.rating += p.Ratings.Average
	}
	stats := []models.CategoryStats{}
	for category, a := range byCategory {
		stats = append(stats, models.CategoryStats{
			Category:      category,
			TotalProducts: a.count,
			AveragePrice:  a.price / float64(a.count),
			AverageRating: a.rating / float64(a.count),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Category < stats[j].Category })
	return stats, nil
}

func newProductRig() (*ProductController, *fakeProductStore) {
	products := newFakeProductStore()
	return NewProductController(products), products
}

func validProductPayload() map[string]interface{} {
	return map[string]interface{}{
		"name":     "Aspirin",
		"brand":    "Bayer",
		"category": "painkillers",
		"price":    map[string]float64{"original": 100, "discounted": 80},
		"stock":    25,
		"weight":   map[string]interface{}{"value": 500},
		"images":   []string{"aspirin.jpg"},
	}
}

func seedProduct(t *testing.T, pc *ProductController, mutate func(map[string]interface{})) models.Product {
	t.Helper()
	payload := validProductPayload()
	if mutate != nil {
		mutate(payload)
	}
	rec := doRequest(pc.Create, "POST", "/api/products", payload, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var p models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestCreateProductAppliesDefaults(t *testing.T) {
	pc, _ := newProductRig()

	p := seedProduct(t, pc, nil)
	assert.False(t, p.ID.IsZero())
	assert.Equal(t, "mg", p.Weight.Unit)
	assert.Equal(t, "12-24 HOURS", p.Delivery.TimeRange)
	assert.True(t, p.Delivery.Available)
	assert.Zero(t, p.Likes)
	assert.Zero(t, p.Ratings.Count)
}

func TestCreateProductReportsAllViolations(t *testing.T) {
	pc, _ := newProductRig()

	rec := doRequest(pc.Create, "POST", "/api/products", map[string]interface{}{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Contains(t, body.Error.Details, "name")
	assert.Contains(t, body.Error.Details, "brand")
	assert.Contains(t, body.Error.Details, "category")
	assert.Contains(t, body.Error.Details, "price.original")
	assert.Contains(t, body.Error.Details, "price.discounted")
	assert.Contains(t, body.Error.Details, "images")
}

type listBody struct {
	Total      int64            `json:"total"`
	Page       int64            `json:"page"`
	TotalPages int64            `json:"totalPages"`
	Products   []models.Product `json:"products"`
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) listBody {
	t.Helper()
	var body listBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestListProductsPriceRange(t *testing.T) {
	pc, _ := newProductRig()
	seedProduct(t, pc, nil) // discounted 80

	rec := doRequest(pc.List, "GET", "/api/products?minPrice=50&maxPrice=90", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeList(t, rec)
	assert.Equal(t, int64(1), body.Total)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "Aspirin", body.Products[0].Name)

	rec = doRequest(pc.List, "GET", "/api/products?minPrice=90", nil, nil)
	body = decodeList(t, rec)
	assert.Equal(t, int64(0), body.Total)
	assert.Empty(t, body.Products)
}

func TestListProductsSearchAndExactFilters(t *testing.T) {
	pc, _ := newProductRig()
	seedProduct(t, pc, nil)
	seedProduct(t, pc, func(p map[string]interface{}) {
		p["name"] = "Vitamin C"
		p["brand"] = "Now"
		p["category"] = "vitamins"
	})

	rec := doRequest(pc.List, "GET", "/api/products?search=ASPIRIN", nil, nil)
	body := decodeList(t, rec)
	assert.Equal(t, int64(1), body.Total)

	rec = doRequest(pc.List, "GET", "/api/products?category=vitamins&brand=Now", nil, nil)
	body = decodeList(t, rec)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "Vitamin C", body.Products[0].Name)
}

func TestListProductsPagination(t *testing.T) {
	pc, _ := newProductRig()
	for i := 0; i < 15; i++ {
		seedProduct(t, pc, nil)
	}

	rec := doRequest(pc.List, "GET", "/api/products", nil, nil)
	body := decodeList(t, rec)
	assert.Equal(t, int64(15), body.Total)
	assert.Equal(t, int64(1), body.Page)
	assert.Equal(t, int64(2), body.TotalPages)
	assert.Len(t, body.Products, 10)

	rec = doRequest(pc.List, "GET", "/api/products?page=2", nil, nil)
	body = decodeList(t, rec)
	assert.Equal(t, int64(2), body.Page)
	assert.Len(t, body.Products, 5)
}

func idVars(id primitive.ObjectID) map[string]string {
	return map[string]string{"id": id.Hex()}
}

func TestGetProductResolvesSimilar(t *testing.T) {
	pc, _ := newProductRig()
	base := seedProduct(t, pc, nil)
	other := seedProduct(t, pc, func(p map[string]interface{}) { p["name"] = "Ibuprofen" })

	rec := doRequest(pc.AddSimilar, "POST", "/api/products/"+base.ID.Hex()+"/similar",
		map[string]string{"similarProductId": other.ID.Hex()}, idVars(base.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(pc.Get, "GET", "/api/products/"+base.ID.Hex(), nil, idVars(base.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		Name            string           `json:"name"`
		SimilarProducts []models.Product `json:"similarProducts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Aspirin", detail.Name)
	require.Len(t, detail.SimilarProducts, 1)
	assert.Equal(t, "Ibuprofen", detail.SimilarProducts[0].Name)
}

func TestGetProductNotFound(t *testing.T) {
	pc, _ := newProductRig()

	missing := primitive.NewObjectID()
	rec := doRequest(pc.Get, "GET", "/api/products/"+missing.Hex(), nil, idVars(missing))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error.Code)
}

func TestGetProductInvalidID(t *testing.T) {
	pc, _ := newProductRig()

	rec := doRequest(pc.Get, "GET", "/api/products/zzz", nil, map[string]string{"id": "zzz"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProductReplaces(t *testing.T) {
	pc, _ := newProductRig()
	p := seedProduct(t, pc, nil)

	payload := validProductPayload()
	payload["name"] = "Aspirin Forte"
	rec := doRequest(pc.Update, "PUT", "/api/products/"+p.ID.Hex(), payload, idVars(p.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Aspirin Forte", updated.Name)
	assert.Equal(t, p.ID, updated.ID)
	assert.Equal(t, p.CreatedAt.Unix(), updated.CreatedAt.Unix())
}

func TestUpdateProductNotFound(t *testing.T) {
	pc, _ := newProductRig()

	missing := primitive.NewObjectID()
	rec := doRequest(pc.Update, "PUT", "/api/products/"+missing.Hex(), validProductPayload(), idVars(missing))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchProductMerges(t *testing.T) {
	pc, _ := newProductRig()
	p := seedProduct(t, pc, nil)

	rec := doRequest(pc.Patch, "PATCH", "/api/products/"+p.ID.Hex(),
		map[string]interface{}{"stock": 5}, idVars(p.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	var patched models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patched))
	assert.Equal(t, 5, patched.Stock)
	// Untouched fields survive the merge.
	assert.Equal(t, "Aspirin", patched.Name)
	assert.Equal(t, 80.0, patched.Price.Discounted)
}

func TestPatchProductInvalidResult(t *testing.T) {
	pc, _ := newProductRig()
	p := seedProduct(t, pc, nil)

	rec := doRequest(pc.Patch, "PATCH", "/api/products/"+p.ID.Hex(),
		map[string]interface{}{"name": ""}, idVars(p.ID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error.Details, "name")
}

func TestDeleteProduct(t *testing.T) {
	pc, _ := newProductRig()
	p := seedProduct(t, pc, nil)

	rec := doRequest(pc.Delete, "DELETE", "/api/products/"+p.ID.Hex(), nil, idVars(p.ID))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(pc.Delete, "DELETE", "/api/products/"+p.ID.Hex(), nil, idVars(p.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(pc.Get, "GET", "/api/products/"+p.ID.Hex(), nil, idVars(p.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddReviewRecomputesRatings(t *testing.T) {
	pc, _ := newProductRig()
	p := seedProduct(t, pc, nil)

	ratings := []int{5, 4, 3}
	var last models.Product
	for _, r := range ratings {
		rec := doRequest(pc.AddReview, "POST", "/api/products/"+p.ID.Hex()+"/review",
			map[string]interface{}{"rating": r, "comment": "ok"}, idVars(p.ID))
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
	}

	assert.Equal(t, 3, last.Ratings.Count)
	assert.InDelta(t, 4.0, last.Ratings.Average, 1e-9)
	assert.Len(t, last.Ratings.Reviews, 3)
}

func TestAddReviewInvalidRating(t *testing.T) {
	pc, _ := newProductRig()
	p := seedProduct(t, pc, nil)

	rec := doRequest(pc.AddReview, "POST", "/api/products/"+p.ID.Hex()+"/review",
		map[string]interface{}{"rating": 6}, idVars(p.ID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddReviewNotFound(t *testing.T) {
	pc, _ := newProductRig()

	missing := primitive.NewObjectID()
	rec := doRequest(pc.AddReview, "POST", "/api/products/"+missing.Hex()+"/review",
		map[string]interface{}{"rating": 5}, idVars(missing))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLikeProductConcurrent(t *testing.T) {
	pc, products := newProductRig()
	p := seedProduct(t, pc, nil)

	const likes = 25
	var wg sync.WaitGroup
	for i := 0; i < likes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := doRequest(pc.Like, "PATCH", "/api/products/"+p.ID.Hex()+"/like", nil, idVars(p.ID))
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()

	stored, err := products.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(likes), stored.Likes)
}

func TestAddSimilarDuplicate(t *testing.T) {
	pc, products := newProductRig()
	base := seedProduct(t, pc, nil)
	other := seedProduct(t, pc, func(p map[string]interface{}) { p["name"] = "Ibuprofen" })

	payload := map[string]string{"similarProductId": other.ID.Hex()}
	rec := doRequest(pc.AddSimilar, "POST", "/api/products/"+base.ID.Hex()+"/similar", payload, idVars(base.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(pc.AddSimilar, "POST", "/api/products/"+base.ID.Hex()+"/similar", payload, idVars(base.ID))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE", decodeError(t, rec).Error.Code)

	stored, err := products.FindByID(context.Background(), base.ID)
	require.NoError(t, err)
	assert.Len(t, stored.SimilarProducts, 1)
}

func TestAddSimilarProductNotFound(t *testing.T) {
	pc, _ := newProductRig()

	missing := primitive.NewObjectID()
	rec := doRequest(pc.AddSimilar, "POST", "/api/products/"+missing.Hex()+"/similar",
		map[string]string{"similarProductId": primitive.NewObjectID().Hex()}, idVars(missing))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// vanishingProductStore deletes the target product right before the
// push, like a concurrent delete landing between the handler's lookup
// and its AddSimilar call.
type vanishingProductStore struct {
	*fakeProductStore
}

func (s *vanishingProductStore) AddSimilar(ctx context.Context, id, similarID primitive.ObjectID) (store.SimilarOutcome, error) {
	s.fakeProductStore.Delete(ctx, id)
	return s.fakeProductStore.AddSimilar(ctx, id, similarID)
}

func TestAddSimilarConcurrentDeleteIsNotFound(t *testing.T) {
	products := newFakeProductStore()
	pc := NewProductController(&vanishingProductStore{products})
	base := seedProduct(t, pc, nil)
	other := seedProduct(t, pc, func(p map[string]interface{}) { p["name"] = "Ibuprofen" })

	rec := doRequest(pc.AddSimilar, "POST", "/api/products/"+base.ID.Hex()+"/similar",
		map[string]string{"similarProductId": other.ID.Hex()}, idVars(base.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error.Code)
}

func TestListSimilarPaginates(t *testing.T) {
	pc, _ := newProductRig()
	base := seedProduct(t, pc, nil)

	for i := 0; i < 7; i++ {
		other := seedProduct(t, pc, func(p map[string]interface{}) { p["name"] = "Generic" })
		rec := doRequest(pc.AddSimilar, "POST", "/api/products/"+base.ID.Hex()+"/similar",
			map[string]string{"similarProductId": other.ID.Hex()}, idVars(base.ID))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(pc.ListSimilar, "GET", "/api/products/"+base.ID.Hex()+"/similar", nil, idVars(base.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	var firstPage []models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &firstPage))
	assert.Len(t, firstPage, 5)

	rec = doRequest(pc.ListSimilar, "GET", "/api/products/"+base.ID.Hex()+"/similar?page=2", nil, idVars(base.ID))
	var secondPage []models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &secondPage))
	assert.Len(t, secondPage, 2)
}

func TestPopularTieBrokenByViews(t *testing.T) {
	pc, products := newProductRig()

	low := seedProduct(t, pc, func(p map[string]interface{}) { p["name"] = "Low" })
	fewerViews := seedProduct(t, pc, func(p map[string]interface{}) { p["name"] = "FewerViews" })
	moreViews := seedProduct(t, pc, func(p map[string]interface{}) { p["name"] = "MoreViews" })

	products.mu.Lock()
	products.products[low.ID].Likes = 3
	products.products[low.ID].Views = 1
	products.products[fewerViews.ID].Likes = 5
	products.products[fewerViews.ID].Views = 10
	products.products[moreViews.ID].Likes = 5
	products.products[moreViews.ID].Views = 20
	products.mu.Unlock()

	rec := doRequest(pc.Popular, "GET", "/api/products/popular", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var popular []models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &popular))
	require.Len(t, popular, 3)
	assert.Equal(t, "MoreViews", popular[0].Name)
	assert.Equal(t, "FewerViews", popular[1].Name)
	assert.Equal(t, "Low", popular[2].Name)
}

func TestStatsGroupsByCategory(t *testing.T) {
	pc, _ := newProductRig()

	seedProduct(t, pc, func(p map[string]interface{}) {
		p["price"] = map[string]float64{"original": 100, "discounted": 80}
	})
	seedProduct(t, pc, func(p map[string]interface{}) {
		p["price"] = map[string]float64{"original": 50, "discounted": 40}
	})
	seedProduct(t, pc, func(p map[string]interface{}) {
		p["category"] = "vitamins"
		p["price"] = map[string]float64{"original": 30, "discounted": 20}
	})

	rec := doRequest(pc.Stats, "GET", "/api/products/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats []models.CategoryStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats, 2)

	assert.Equal(t, "painkillers", stats[0].Category)
	assert.Equal(t, int64(2), stats[0].TotalProducts)
	assert.InDelta(t, 60.0, stats[0].AveragePrice, 1e-9)

	assert.Equal(t, "vitamins", stats[1].Category)
	assert.Equal(t, int64(1), stats[1].TotalProducts)
	assert.InDelta(t, 20.0, stats[1].AveragePrice, 1e-9)
}

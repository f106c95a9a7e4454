package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-pharmacy/apperrors"
	"go-pharmacy/models"
	"go-pharmacy/store"
	"go-pharmacy/utils"
)

const (
	popularLimit        = 10
	defaultSimilarLimit = 5
)

// ProductController handles the catalog: CRUD, listing, reviews, likes,
// similar links, popularity and statistics.
type ProductController struct {
	products store.ProductStore
}

func NewProductController(products store.ProductStore) *ProductController {
	return &ProductController{products: products}
}

func productID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		return primitive.NilObjectID, apperrors.New(apperrors.CodeValidationFailed, "Invalid product id", http.StatusBadRequest)
	}
	return id, nil
}

// Create persists a new product.
func (pc *ProductController) Create(w http.ResponseWriter, r *http.Request) {
	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		writeError(w, apperrors.New(apperrors.CodeValidationFailed, "Invalid input", http.StatusBadRequest))
		return
	}
	product.ApplyDefaults()
	if violations := utils.ValidateStruct(product); violations != nil {
		writeError(w, apperrors.ValidationError(violations))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := pc.products.Insert(ctx, &product); err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

type productListResponse struct {
	Total      int64            `json:"total"`
	Page       int64            `json:"page"`
	TotalPages int64            `json:"totalPages"`
	Products   []models.Product `json:"products"`
}

// List returns a filtered, sorted, paginated product page plus the
// total match count.
func (pc *ProductController) List(w http.ResponseWriter, r *http.Request) {
	q := store.ParseProductQuery(r.URL.Query())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	products, total, err := pc.products.List(ctx, q)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}

	writeJSON(w, http.StatusOK, productListResponse{
		Total:      total,
		Page:       q.Page,
		TotalPages: store.TotalPages(total, q.Limit),
		Products:   products,
	})
}

type productDetail struct {
	models.Product
	SimilarProducts []models.Product `json:"similarProducts"`
}

// Get returns one product with its similar references resolved to full
// records.
func (pc *ProductController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	product, err := pc.products.FindByID(ctx, id)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	if product == nil {
		writeError(w, apperrors.NotFound("Product"))
		return
	}

	similar := []models.Product{}
	if len(product.SimilarProducts) > 0 {
		similar, err = pc.products.FindByIDs(ctx, product.SimilarProducts, 0, 0)
		if err != nil {
			writeError(w, apperrors.StoreError(err))
			return
		}
	}

	writeJSON(w, http.StatusOK, productDetail{Product: *product, SimilarProducts: similar})
}

// Update fully replaces a product document, keeping its identity and
// creation time.
func (pc *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	existing, err := pc.products.FindByID(ctx, id)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	if existing == nil {
		writeError(w, apperrors.NotFound("Product"))
		return
	}

	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		writeError(w, apperrors.New(apperrors.CodeValidationFailed, "Invalid input", http.StatusBadRequest))
		return
	}
	product.ApplyDefaults()
	if violations := utils.ValidateStruct(product); violations != nil {
		writeError(w, apperrors.ValidationError(violations))
		return
	}
	product.CreatedAt = existing.CreatedAt

	pc.replaceAndRespond(ctx, w, id, &product)
}

// Patch merges the supplied fields onto the stored document, then
// re-validates the result.
func (pc *ProductController) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	product, err := pc.products.FindByID(ctx, id)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	if product == nil {
		writeError(w, apperrors.NotFound("Product"))
		return
	}

	// Decoding into the stored document merges only the fields present
	// in the request body.
	if err := json.NewDecoder(r.Body).Decode(product); err != nil {
		writeError(w, apperrors.New(apperrors.CodeValidationFailed, "Invalid input", http.StatusBadRequest))
		return
	}
	if violations := utils.ValidateStruct(*product); violations != nil {
		writeError(w, apperrors.ValidationError(violations))
		return
	}

	pc.replaceAndRespond(ctx, w, id, product)
}

func (pc *ProductController) replaceAndRespond(ctx context.Context, w http.ResponseWriter, id primitive.ObjectID, product *models.Product) {
	found, err := pc.products.Replace(ctx, id, product)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	if !found {
		writeError(w, apperrors.NotFound("Product"))
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Delete removes a product.
func (pc *ProductController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	found, err := pc.products.Delete(ctx, id)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	if !found {
		writeError(w, apperrors.NotFound("Product"))
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Product deleted successfully"})
}

type reviewRequest struct {
	User    string `json:"user"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// AddReview appends a review; the store recomputes the rating aggregate
// atomically.
func (pc *ProductController) AddReview(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeValidationFailed, "Invalid input", http.StatusBadRequest))
		return
	}
	if violations := utils.ValidateStruct(req); violations != nil {
		writeError(w, apperrors.ValidationError(violations))
		return
	}

	review := models.Review{Rating: req.Rating, Comment: req.Comment}
	if req.User != "" {
		userID, err := primitive.ObjectIDFromHex(req.User)
		if err != nil {
			writeError(w, apperrors.New(apperrors.CodeValidationFailed, "Invalid user id", http.StatusBadRequest))
			return
		}
		review.User = userID
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	product, err := pc.products.AddReview(ctx, id, review)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	if product == nil {
		writeError(w, apperrors.NotFound("Product"))
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Like increments the like counter atomically.
func (pc *ProductController) Like(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	product, err := pc.products.IncrementLikes(ctx, id)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	if product == nil {
		writeError(w, apperrors.NotFound("Product"))
		return
	}
	writeJSON(w, http.StatusOK, product)
}

type addSimilarRequest struct {
	SimilarProductID string `json:"similarProductId" validate:"required"`
}

// AddSimilar links another product as similar. Linking the same product
// twice is rejected; the set never holds duplicates.
func (pc *ProductController) AddSimilar(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req addSimilarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeValidationFailed, "Invalid input", http.StatusBadRequest))
		return
	}
	if violations := utils.ValidateStruct(req); violations != nil {
		writeError(w, apperrors.ValidationError(violations))
		return
	}
	similarID, err := primitive.ObjectIDFromHex(req.SimilarProductID)
	if err != nil {
		writeError(w, apperrors.New(apperrors.CodeValidationFailed, "Invalid similar product id", http.StatusBadRequest))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	product, err := pc.products.FindByID(ctx, id)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	if product == nil {
		writeError(w, apperrors.NotFound("Product"))
		return
	}
	if product.HasSimilar(similarID) {
		writeError(w, apperrors.Duplicate("Similar product already added"))
		return
	}

	outcome, err := pc.products.AddSimilar(ctx, id, similarID)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	switch outcome {
	case store.SimilarMissing:
		// Product deleted between the lookup above and the push.
		writeError(w, apperrors.NotFound("Product"))
		return
	case store.SimilarDuplicate:
		// Lost the race against a concurrent identical link.
		writeError(w, apperrors.Duplicate("Similar product already added"))
		return
	}

	updated, err := pc.products.FindByID(ctx, id)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ListSimilar paginates over the resolved similar-product set.
func (pc *ProductController) ListSimilar(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	product, err := pc.products.FindByID(ctx, id)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	if product == nil {
		writeError(w, apperrors.NotFound("Product"))
		return
	}

	page, limit := pageAndLimit(r.URL.Query(), defaultSimilarLimit)
	similar := []models.Product{}
	if len(product.SimilarProducts) > 0 {
		similar, err = pc.products.FindByIDs(ctx, product.SimilarProducts, (page-1)*limit, limit)
		if err != nil {
			writeError(w, apperrors.StoreError(err))
			return
		}
	}
	writeJSON(w, http.StatusOK, similar)
}

func pageAndLimit(values url.Values, defaultLimit int64) (int64, int64) {
	page := int64(1)
	if n, err := strconv.ParseInt(values.Get("page"), 10, 64); err == nil && n > 0 {
		page = n
	}
	limit := defaultLimit
	if n, err := strconv.ParseInt(values.Get("limit"), 10, 64); err == nil && n > 0 {
		limit = n
	}
	return page, limit
}

// Popular returns the ten most liked products, ties broken by views.
func (pc *ProductController) Popular(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	products, err := pc.products.Popular(ctx, popularLimit)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// Stats returns per-category aggregates over the whole catalog.
func (pc *ProductController) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stats, err := pc.products.Stats(ctx)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

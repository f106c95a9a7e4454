// routes/routes.go
package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"go-pharmacy/controllers"
	"go-pharmacy/middleware"
	"go-pharmacy/utils"
)

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, authController *controllers.AuthController, productController *controllers.ProductController, tokens *utils.TokenManager) {
	api := router.PathPrefix("/api").Subrouter()

	// Auth routes
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register/user", authController.RegisterUser).Methods("POST")
	auth.HandleFunc("/register/pharmacy", authController.RegisterPharmacy).Methods("POST")
	auth.HandleFunc("/verify/{token}", authController.VerifyEmail).Methods("GET")
	auth.HandleFunc("/login", authController.Login).Methods("POST")
	auth.HandleFunc("/forgot-password", authController.ForgotPassword).Methods("POST")
	auth.HandleFunc("/reset-password/{token}", authController.ResetPassword).Methods("POST")
	auth.Handle("/logout", middleware.Auth(tokens)(http.HandlerFunc(authController.Logout))).Methods("POST")

	// Product routes. The fixed paths are registered ahead of /{id}.
	products := api.PathPrefix("/products").Subrouter()
	products.HandleFunc("/popular", productController.Popular).Methods("GET")
	products.HandleFunc("/stats", productController.Stats).Methods("GET")
	products.HandleFunc("", productController.List).Methods("GET")
	products.HandleFunc("", productController.Create).Methods("POST")
	products.HandleFunc("/{id}", productController.Get).Methods("GET")
	products.HandleFunc("/{id}", productController.Update).Methods("PUT")
	products.HandleFunc("/{id}", productController.Patch).Methods("PATCH")
	products.HandleFunc("/{id}", productController.Delete).Methods("DELETE")
	products.HandleFunc("/{id}/review", productController.AddReview).Methods("POST")
	products.HandleFunc("/{id}/like", productController.Like).Methods("PATCH")
	products.HandleFunc("/{id}/similar", productController.ListSimilar).Methods("GET")
	products.HandleFunc("/{id}/similar", productController.AddSimilar).Methods("POST")
}

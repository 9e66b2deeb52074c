package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"event-checkout-platform/internal/config"
	"event-checkout-platform/internal/handlers"
	"event-checkout-platform/internal/metrics"
	"event-checkout-platform/internal/middleware"
	"event-checkout-platform/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Create session store
	sessionStore := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400, // 1 day
		HttpOnly: true,
		Secure:   cfg.Server.Env == "production",
		SameSite: http.SameSiteLaxMode,
	}

	// Initialize collaborator services; without API credentials the
	// mocks keep local development self-contained.
	var (
		authService        services.AuthServiceInterface
		recipientService   services.RecipientServiceInterface
		couponService      services.CouponServiceInterface
		transactionService services.TransactionServiceInterface
	)
	if cfg.Collaborator.BaseURL != "" && cfg.Collaborator.APIKey != "" {
		authService = services.NewAuthService(services.AuthConfig{
			BaseURL: cfg.Collaborator.BaseURL,
			APIKey:  cfg.Collaborator.APIKey,
		})
		recipientService = services.NewRecipientService(services.RecipientConfig{
			BaseURL: cfg.Collaborator.BaseURL,
			APIKey:  cfg.Collaborator.APIKey,
		})
		couponService = services.NewCouponService(services.CouponConfig{
			BaseURL: cfg.Collaborator.BaseURL,
			APIKey:  cfg.Collaborator.APIKey,
		})
		transactionService = services.NewTransactionService(services.TransactionConfig{
			BaseURL: cfg.Collaborator.BaseURL,
			APIKey:  cfg.Collaborator.APIKey,
		})
		log.Println("Backend collaborators configured")
	} else {
		log.Println("No backend credentials provided, using mock collaborators")
		authService = services.NewMockAuthService()
		recipientService = services.NewMockRecipientService()
		couponService = services.NewMockCouponService()
		transactionService = services.NewMockTransactionService()
	}

	checkoutMetrics := metrics.New()

	checkoutConfig := services.CheckoutConfig{
		ServiceFee:      cfg.Checkout.ServiceFeeCents,
		DefaultCountry:  cfg.Checkout.DefaultPhoneCountry,
		DurationSeconds: cfg.Checkout.DurationSeconds,
		OnExpire:        checkoutMetrics.ObserveExpiration,
	}
	assignmentEngine := services.NewAssignmentEngine(recipientService, checkoutConfig.DefaultCountry)
	checkoutManager := services.NewCheckoutManager(checkoutConfig, assignmentEngine, couponService, transactionService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService, sessionStore)
	lookupLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Router
	r := chi.NewRouter()
	r.Use(middleware.RecoverMiddleware)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.MetricsMiddleware(checkoutMetrics))
	r.Use(authMiddleware.LoadUser)

	checkoutHandler := handlers.NewCheckoutHandler(checkoutManager, sessionStore, checkoutMetrics)
	checkoutHandler.RegisterRoutes(r, lookupLimiter)

	r.Handle("/metrics", metrics.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting checkout server on http://%s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal("Server failed:", err)
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/K-dubey09/bookstore/internal/cart"
	"github.com/K-dubey09/bookstore/internal/config"
	"github.com/K-dubey09/bookstore/internal/es"
	"github.com/K-dubey09/bookstore/internal/handlers"
	"github.com/K-dubey09/bookstore/internal/hash"
	"github.com/K-dubey09/bookstore/internal/logging"
	"github.com/K-dubey09/bookstore/internal/models"
	"github.com/K-dubey09/bookstore/internal/mykafka"
	"github.com/K-dubey09/bookstore/internal/resource"
	httpserver "github.com/K-dubey09/bookstore/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	if err := seedAdmin(db, configuration); err != nil {
		log.Fatalf("admin seed error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	var producer *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatal(err)
		}
	}
	var publisher mykafka.Publisher
	if producer != nil {
		publisher = producer
	}

	var searchHandler *handlers.SearchHandler
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatal(err)
		}
		searchHandler = &handlers.SearchHandler{ES: esClient, Index: "product"}
	}

	cartService := cart.NewService(db)
	guests := cart.NewGuestStore()

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		DB:        db,
		JWTSecret: jwtSecret,
		AuthHandler: &handlers.AuthHandler{
			DB: db, JWTSecret: jwtSecret, Producer: publisher,
			Cart: cartService, Guests: guests,
		},
		ResourceHandler: &handlers.ResourceHandler{Registry: resource.NewRegistry(db)},
		CartHandler:     &handlers.CartHandler{DB: db, Cart: cartService, Guests: guests, Producer: publisher},
		OrderHandler:    &handlers.OrderHandler{DB: db, Producer: publisher},
		SearchHandler:   searchHandler,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}

// seedAdmin creates the configured admin account when it does not exist yet.
// Without ADMIN_USERNAME/ADMIN_PASSWORD no account is seeded.
func seedAdmin(db *gorm.DB, cfg *config.Config) error {
	if cfg.ADMIN_USERNAME == "" || cfg.ADMIN_PASSWORD == "" {
		return nil
	}

	var existing models.User
	err := db.Where("username = ?", cfg.ADMIN_USERNAME).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	pwHash, err := hash.HashPassword(cfg.ADMIN_PASSWORD)
	if err != nil {
		return err
	}
	return db.Create(&models.User{
		Username:     cfg.ADMIN_USERNAME,
		PasswordHash: pwHash,
		Role:         models.RoleAdmin,
	}).Error
}

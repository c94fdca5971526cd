package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fieldops/internal/auth"
	"github.com/ukydev/fieldops/internal/batch"
	"github.com/ukydev/fieldops/internal/config"
	"github.com/ukydev/fieldops/internal/db"
	"github.com/ukydev/fieldops/internal/events"
	"github.com/ukydev/fieldops/internal/handlers"
	"github.com/ukydev/fieldops/internal/metrics"
	"github.com/ukydev/fieldops/internal/models"
	"github.com/ukydev/fieldops/internal/reports"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	cfg.ConfigureLogging()

	if err := run(cfg); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	database := client.Database(cfg.MongoDB)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		return err
	}

	metrics.InitMetrics(cfg.MetricsPrefix)
	publisher := events.NewAsync(newPublisher(cfg))
	defer publisher.Close()

	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return err
	}

	users := &db.MongoUserCollection{Collection: database.Collection(db.UsersCollection)}
	if err := bootstrapAdmin(ctx, users, authService, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(cfg, client, database, authService, users, publisher),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newRouter(cfg config.Config, client *mongo.Client, database *mongo.Database, authService *auth.Service, users db.UserCollection, publisher events.Publisher) http.Handler {
	schedules := &db.MongoScheduleCollection{Collection: database.Collection(db.SchedulesCollection)}
	services := &db.MongoServiceCollection{Collection: database.Collection(db.ServicesCollection)}
	clients := db.NewClientCollection(database.Collection(db.ClientsCollection))
	products := db.NewProductCollection(database.Collection(db.ProductsCollection))
	importer := batch.NewImporter(schedules, services, clients, products)
	builder := reports.NewBuilder(&db.MongoReportSource{Schedules: schedules.Collection, Services: services.Collection})

	return handlers.NewRouter(handlers.Deps{
		Auth:      authService,
		Users:     handlers.NewUserHandler(authService, users),
		Login:     handlers.NewAuthHandler(authService, users),
		Catalog:   handlers.NewCatalogHandler(clients, products, cfg.UploadDir, cfg.MaxUploadBytes),
		Schedules: handlers.NewScheduleHandler(schedules, importer, publisher, cfg.MaxUploadBytes),
		Services:  handlers.NewServiceHandler(services, schedules, importer, publisher),
		Reports:   handlers.NewReportHandler(builder, schedules, services),
		DB: handlers.PingerFunc(func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		}),
		LoginRateLimit: cfg.LoginRateLimit,
		TrustedProxies: cfg.TrustedProxies,
	})
}

// newPublisher connects to the broker when events are enabled. A broker that
// cannot be reached disables events instead of failing startup.
func newPublisher(cfg config.Config) events.Publisher {
	if !cfg.MQTTEnabled {
		return events.Noop{}
	}
	p, err := events.NewMQTTPublisher(cfg.MQTT)
	if err != nil {
		log.WithError(err).WithField("broker", cfg.MQTT.Broker).Warn("Domain events disabled")
		return events.Noop{}
	}
	log.WithField("broker", cfg.MQTT.Broker).Info("Publishing domain events")
	return p
}

// bootstrapAdmin creates the administrator named by ADMIN_EMAIL if no user
// holds that email yet.
func bootstrapAdmin(ctx context.Context, users db.UserCollection, authService *auth.Service, email, password string) error {
	if email == "" {
		return nil
	}
	_, err := users.FindUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("look up admin: %w", err)
	}
	if err := authService.ValidatePassword(password); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD: %w", err)
	}
	hash, err := authService.HashPassword(password)
	if err != nil {
		return err
	}
	admin := models.User{
		Name:         "Administrador",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdministrator,
	}
	if err := users.InsertUser(ctx, &admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.WithField("email", admin.Email).Info("Administrator created")
	return nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fitnease/comms/internal/application/notification"
	"github.com/fitnease/comms/internal/config"
	"github.com/fitnease/comms/internal/infrastructure/dynamo"
	"github.com/fitnease/comms/internal/infrastructure/expo"
	"github.com/fitnease/comms/internal/infrastructure/identity"
	jwtinfra "github.com/fitnease/comms/internal/infrastructure/jwt"
	"github.com/fitnease/comms/internal/infrastructure/smtp"
	"github.com/fitnease/comms/internal/infrastructure/sns"
	transporthttp "github.com/fitnease/comms/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if the public key is missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// Realtime broadcaster (optional — graceful fallback when no topic is set).
	var broadcaster sns.Broadcaster
	if b, err := sns.NewPublisher(cfg); err == nil {
		broadcaster = b
	} else {
		log.Printf("WARN: realtime broadcaster not available: %v", err)
		broadcaster = sns.Noop()
	}

	deps := &transporthttp.Deps{
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		DeviceTokenRepo:  dynamo.NewDeviceTokenRepo(dynamoClient, cfg.DynamoTables.DeviceTokens),
		SettingRepo:      dynamo.NewSettingRepo(dynamoClient, cfg.DynamoTables.NotificationSettings),
		Broadcaster:      broadcaster,
		PushGateway:      expo.NewClient(cfg),
		Identity:         identity.NewClient(cfg),
		Mailer:           smtp.NewMailer(cfg),
		JWTProvider:      jwtProvider,
	}

	svcs := transporthttp.NewServices(deps)
	router := transporthttp.NewRouter(cfg, deps, svcs)

	// Scheduled-notification worker.
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	go notification.NewScheduler(svcs.Notifications, cfg.SchedulerInterval).Run(schedCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	schedCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

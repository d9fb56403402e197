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

	"github.com/candidate-intake-api/internal/application/registration"
	"github.com/candidate-intake-api/internal/config"
	"github.com/candidate-intake-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/candidate-intake-api/internal/infrastructure/jwt"
	"github.com/candidate-intake-api/internal/infrastructure/otpstore"
	s3infra "github.com/candidate-intake-api/internal/infrastructure/s3"
	"github.com/candidate-intake-api/internal/infrastructure/smtp"
	"github.com/candidate-intake-api/internal/infrastructure/sns"
	"github.com/candidate-intake-api/internal/pkg/janitor"
	transporthttp "github.com/candidate-intake-api/internal/transport/http"
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

	// JWT provider (optional — admin routes are open if the key is missing,
	// which is only acceptable in development).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available, admin routes unprotected: %v", err)
	}

	// S3 store and the cleanup worker for orphaned uploads.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)
	uploadJanitor := janitor.New(s3Store, 128)
	defer uploadJanitor.Close()

	// OTP store: Redis when configured, in-process otherwise.
	var otpStore registration.OTPStore
	if cfg.RedisAddr != "" {
		otpStore = otpstore.NewRedis(cfg.RedisAddr, cfg.RedisDB)
		log.Printf("Using Redis OTP store at %s", cfg.RedisAddr)
	} else {
		otpStore = otpstore.NewMemory(cfg.OTPStoreSize, cfg.OTPTTL)
	}

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	deps := &transporthttp.Deps{
		CandidateRepo: dynamo.NewCandidateRepo(dynamoClient, cfg.DynamoTables.Candidates),
		OTPStore:      otpStore,
		S3Store:       s3Store,
		Mailer:        mailer,
		SMSSender:     smsSender,
		JWTProvider:   jwtProvider,
		Janitor:       uploadJanitor,
	}

	router := transporthttp.NewRouter(cfg, deps)

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
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

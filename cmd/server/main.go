// Command server runs the order-to-CRM sync HTTP API.
package main

import (
	"context"
	"crypto"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	auditrepo "order-crm-sync/internal/audit/repository"
	checkouthandler "order-crm-sync/internal/checkout/handler"
	checkoutrepo "order-crm-sync/internal/checkout/repository"
	checkoutservice "order-crm-sync/internal/checkout/service"
	"order-crm-sync/internal/config"
	"order-crm-sync/internal/crm"
	"order-crm-sync/internal/db"
	"order-crm-sync/internal/gate/engine"
	gaterepo "order-crm-sync/internal/gate/repository"
	healthhandler "order-crm-sync/internal/health/handler"
	identityrepo "order-crm-sync/internal/identitylink/repository"
	identityservice "order-crm-sync/internal/identitylink/service"
	profilehandler "order-crm-sync/internal/profile/handler"
	profileservice "order-crm-sync/internal/profile/service"
	"order-crm-sync/internal/security"
	"order-crm-sync/internal/server"
	"order-crm-sync/internal/server/middleware"
	signuplinkhandler "order-crm-sync/internal/signuplink/handler"
	signuplinkrepo "order-crm-sync/internal/signuplink/repository"
	signuplinkservice "order-crm-sync/internal/signuplink/service"
	"order-crm-sync/internal/telemetry"
	"order-crm-sync/internal/telemetry/otel"
	"order-crm-sync/internal/telemetry/producer"
	webhookhandler "order-crm-sync/internal/webhook/handler"
	webhookrepo "order-crm-sync/internal/webhook/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "order-crm-sync", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	var emitter telemetry.EventEmitter
	kafkaProducer, err := producer.NewKafkaProducer(cfg.SyncKafkaBrokersList(), cfg.SyncKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if kafkaProducer != nil {
		emitter = kafkaProducer
		defer kafkaProducer.Close()
	}

	if cfg.JWTPublicKey == "" {
		log.Fatal("config: JWT_PUBLIC_KEY must be set")
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	var privateKey crypto.Signer
	if cfg.JWTPrivateKey != "" {
		privateKey, err = security.ParsePrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			log.Fatalf("jwt private key: %v", err)
		}
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	crmClient := crm.NewClient(cfg.CRMBaseURL, cfg.CRMAPIToken, cfg.CRMCallTimeout())

	checkoutRepository := checkoutrepo.NewPostgresRepository(database)
	identityRepository := identityrepo.NewPostgresRepository(database)
	signupRepository := signuplinkrepo.NewPostgresRepository(database)
	gateRepository := gaterepo.NewPostgresRepository(database)
	webhookRepository := webhookrepo.NewPostgresRepository(database)
	auditRepository := auditrepo.NewPostgresRepository(database)

	linkService := identityservice.NewLinkService(crmClient, identityRepository)
	gateEvaluator := engine.NewOPAEvaluator(gateRepository)
	checkoutService := checkoutservice.NewCheckoutService(checkoutRepository, linkService, crmClient, gateEvaluator)
	signupService := signuplinkservice.NewSignupService(signupRepository, crmClient, cfg.SignupLinkBaseURL, nil)
	profileService := profileservice.NewProfileService(crmClient, linkService)

	handlers := server.Handlers{
		Checkout:   checkouthandler.NewHandler(checkoutService, checkouthandler.DefaultRequirements, emitter),
		SignupLink: signuplinkhandler.NewHandler(signupService, linkService, cfg.SignupLinkTTL(), cfg.SignupLinkUsageLimit, emitter),
		Profile:    profilehandler.NewHandler(profileService),
		Webhook:    webhookhandler.NewHandler(checkoutService, webhookRepository, emitter),
		Health:     healthhandler.NewHandler(database, gateEvaluator),
	}
	router := server.NewRouter(handlers, tokens, middleware.Audit(auditRepository))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("server: listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Print("server: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: shutdown: %v", err)
	}

	// Give in-flight async event emits time to finish before tearing down exporters.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry: shutdown: %v", err)
	}
}

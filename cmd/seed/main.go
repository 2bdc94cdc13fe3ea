// Command seed loads development fixtures: a checkout session with company
// info, the default gate policy for the demo module, and a dev access token.
// Safe to run repeatedly.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	checkoutdomain "order-crm-sync/internal/checkout/domain"
	checkoutrepo "order-crm-sync/internal/checkout/repository"
	"order-crm-sync/internal/config"
	"order-crm-sync/internal/db"
	gatedomain "order-crm-sync/internal/gate/domain"
	"order-crm-sync/internal/gate/engine"
	gaterepo "order-crm-sync/internal/gate/repository"
	"order-crm-sync/internal/security"
)

const (
	seedUserID    = "dev-user-1"
	seedModule    = "analytics-suite"
	seedSessionID = "00000000-0000-0000-0000-0000000000c0"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	checkoutRepository := checkoutrepo.NewPostgresRepository(database)
	gateRepository := gaterepo.NewPostgresRepository(database)
	now := time.Now().UTC()

	session, err := checkoutRepository.GetSession(ctx, seedSessionID)
	if err != nil {
		log.Fatalf("seed: load session: %v", err)
	}
	if session == nil {
		session = &checkoutdomain.CheckoutSession{
			ID:        seedSessionID,
			UserID:    seedUserID,
			Module:    seedModule,
			Status:    checkoutdomain.StatusCreated,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := checkoutRepository.CreateSession(ctx, session); err != nil {
			log.Fatalf("seed: create session: %v", err)
		}
		log.Printf("seed: created session %s for %s", session.ID, seedUserID)
	}

	info, err := checkoutRepository.GetCompanyInfo(ctx, seedSessionID)
	if err != nil {
		log.Fatalf("seed: load company info: %v", err)
	}
	if info == nil {
		info = &checkoutdomain.CompanyInfo{
			ID:                uuid.NewString(),
			CheckoutSessionID: seedSessionID,
			CompanyName:       "Acme Rentals GmbH",
			Email:             "ops@acme-rentals.example",
			Phone:             "+49 30 1234567",
			Address:           "Prenzlauer Allee 1, Berlin",
			Industry:          "equipment-rental",
			CreatedAt:         now,
		}
		if err := checkoutRepository.CreateCompanyInfo(ctx, info); err != nil {
			log.Fatalf("seed: create company info: %v", err)
		}
		log.Print("seed: created company info")
	}

	policies, err := gateRepository.GetEnabledPoliciesByModule(ctx, seedModule)
	if err != nil {
		log.Fatalf("seed: load gate policies: %v", err)
	}
	if len(policies) == 0 {
		policy := &gatedomain.GatePolicy{
			ID:        uuid.NewString(),
			Module:    seedModule,
			Name:      "default-checkout-gate",
			Rules:     engine.DefaultRegoPolicy,
			Enabled:   true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := gateRepository.Create(ctx, policy); err != nil {
			log.Fatalf("seed: create gate policy: %v", err)
		}
		log.Printf("seed: created gate policy for module %s", seedModule)
	}

	if cfg.JWTPrivateKey != "" {
		privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			log.Fatalf("seed: jwt private key: %v", err)
		}
		tokens := security.NewTokenProvider(privateKey, privateKey.Public(), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
		token, expiresAt, err := tokens.IssueAccess(seedUserID)
		if err != nil {
			log.Fatalf("seed: issue token: %v", err)
		}
		log.Printf("seed: dev access token for %s (expires %s):\n%s", seedUserID, expiresAt.Format(time.RFC3339), token)
	}

	log.Print("seed: done")
}

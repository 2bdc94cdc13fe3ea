// Command worker consumes sync audit events from Kafka and ships them to Loki.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"order-crm-sync/internal/config"
	"order-crm-sync/internal/telemetry/loki"
)

const pushTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	brokers := cfg.SyncKafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("config: KAFKA_BROKERS must be set")
	}
	if cfg.LokiURL == "" {
		log.Fatal("config: LOKI_URL must be set")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.SyncKafkaTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	log.Printf("worker: consuming %s from %v", cfg.SyncKafkaTopic, brokers)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Print("worker: shutting down")
				return
			}
			log.Printf("worker: fetch: %v", err)
			continue
		}

		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		err = loki.PushEventJSON(pushCtx, cfg.LokiURL, msg.Value)
		cancel()
		if err != nil {
			// Leave the message uncommitted so it is retried on the next fetch.
			log.Printf("worker: push to loki: %v", err)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Printf("worker: commit: %v", err)
		}
	}
}

// Command migrate applies database migrations up or down.
package main

import (
	"flag"
	"log"

	"order-crm-sync/internal/config"
	"order-crm-sync/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		log.Fatalf("migrate %s: %v", *direction, err)
	}
	log.Printf("migrate %s: done", *direction)
}

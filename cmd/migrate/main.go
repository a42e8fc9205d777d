package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"beltsensor/internal/dto"
	"beltsensor/internal/model"
	"beltsensor/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/events.db", "Database path")
	tail := flag.Int("tail", 10, "Print this many of the most recent events")
	kind := flag.String("kind", "", "Only print events of this kind")
	purge := flag.Bool("purge", false, "Delete every stored event")
	flag.Parse()

	fmt.Printf("Migrating control event store %s\n", *dbPath)

	// Opening applies the schema
	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	version, err := db.SchemaVersion()
	if err != nil {
		log.Fatalf("Failed to read schema version: %v", err)
	}
	fmt.Printf("Schema version %d\n", version)

	repo := sqlite.NewControlEventRepository(db)

	if *purge {
		if err := repo.DeleteAll(); err != nil {
			log.Fatalf("Failed to purge events: %v", err)
		}
		fmt.Println("All events deleted")
		return
	}

	filter := &dto.EventFilters{Kind: model.EventKind(*kind), Limit: *tail}
	total, err := repo.GetTotalCount(filter)
	if err != nil {
		log.Fatalf("Failed to count events: %v", err)
	}
	fmt.Printf("%d events stored\n", total)

	if *tail <= 0 {
		return
	}
	events, err := repo.GetAll(filter)
	if err != nil {
		log.Fatalf("Failed to read events: %v", err)
	}
	for _, ev := range events {
		fmt.Fprintf(os.Stdout, "%s  %-14s %s\n", ev.CreatedAt.Local().Format(time.DateTime), ev.Kind, ev.Payload)
	}
}

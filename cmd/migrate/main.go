package main

import (
	"context"
	"log"
	"os"

	"ciasx/adapters/sqlstore"
	"ciasx/internal"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <sqlite|postgres> <database_url>")
	}

	driver, databaseURL := os.Args[1], os.Args[2]
	log.Printf("Applying schema to %s database", driver)

	_, db, err := sqlstore.Open(context.Background(), driver, databaseURL, internal.NewDefaultLogger())
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	defer db.Close()

	log.Println("Migration completed successfully")
}

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"brokerdesk/config"
	"brokerdesk/internal/repository"
	"brokerdesk/pkg/database"
)

const usage = `
Brokerdesk - Database CLI Tool

Usage:
  migrate [command]

Commands:
  up          Run GORM auto-migrations for all tables
  status      Show database connection status

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.LoadConfig()
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	switch flag.Arg(0) {
	case "up":
		if err := repository.AutoMigrate(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Println("Migrations applied")
	case "status":
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("Failed to get database handle: %v", err)
		}
		if err := sqlDB.Ping(); err != nil {
			log.Fatalf("Database unreachable: %v", err)
		}
		fmt.Printf("Connected to %s:%s/%s\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
	default:
		fmt.Printf("Unknown command: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
}

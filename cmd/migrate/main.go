package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/snapfeed/snapfeed-backend/internal/config"
	"github.com/snapfeed/snapfeed-backend/internal/database"
	"github.com/snapfeed/snapfeed-backend/internal/migration"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "configs/config.local.yaml", "config file path")
	verify := flag.Bool("verify", false, "compare reaction counters against the ledger and report drift")
	repair := flag.Bool("repair", false, "recompute drifted counters from the ledger")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	if files := config.LoadDotEnv("."); len(files) == 0 {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := gormlogger.Warn
	if *verbose {
		logLevel = gormlogger.Info
	}

	db, err := database.Open(cfg.Database, logLevel)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying DB: %v", err)
	}
	defer sqlDB.Close()

	start := time.Now()
	if err := migration.Run(db); err != nil {
		log.Fatalf("[migrate] schema: %v", err)
	}
	log.Printf("[migrate] Schema up to date in %v", time.Since(start))

	ctx := context.Background()
	switch {
	case *repair:
		drifts, err := migration.RepairCounters(ctx, db)
		if err != nil {
			log.Fatalf("[repair] %v", err)
		}
		report("repair", drifts)
		log.Printf("[repair] Fixed %d counters", len(drifts))
	case *verify:
		drifts, err := migration.VerifyCounters(ctx, db)
		if err != nil {
			log.Fatalf("[verify] %v", err)
		}
		report("verify", drifts)
		if len(drifts) > 0 {
			os.Exit(1)
		}
		log.Println("[verify] All counters match the ledger")
	}
}

func report(stage string, drifts []migration.CounterDrift) {
	for _, d := range drifts {
		log.Printf("[%s] %s %d: likes %d (ledger %d), dislikes %d (ledger %d)",
			stage, d.TargetType, d.ID, d.LikeCount, d.LedgerLikes, d.DislikeCount, d.LedgerDislikes)
	}
}

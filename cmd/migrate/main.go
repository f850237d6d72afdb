package main

import (
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"holidaysri-engine/internal/config"
	"holidaysri-engine/internal/database"
	"holidaysri-engine/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	sqlFile := flag.String("sql", "", "optional SQL file to apply after the schema migration")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	// Connect to database
	db, err := database.Connect(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := database.AutoMigrate(db, zapLogger); err != nil {
		zapLogger.Fatal("schema migration failed", zap.Error(err))
	}

	if *sqlFile == "" {
		return
	}

	// Read migration file
	sqlBytes, err := os.ReadFile(*sqlFile)
	if err != nil {
		zapLogger.Fatal("failed to read migration file", zap.String("file", *sqlFile), zap.Error(err))
	}

	zapLogger.Info("applying migration", zap.String("file", *sqlFile))
	if err := db.Exec(string(sqlBytes)).Error; err != nil {
		zapLogger.Fatal("failed to apply migration", zap.String("file", *sqlFile), zap.Error(err))
	}

	zapLogger.Info("migration applied", zap.String("file", *sqlFile))
}

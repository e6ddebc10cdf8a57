package main

import (
	"flag"

	"github.com/ddmitrov/fincore/internal/config"
	"github.com/ddmitrov/fincore/internal/logger"
	"github.com/ddmitrov/fincore/internal/store/sqlite"
)

func main() {
	log := logger.New("fincore-migrate")

	cfg := config.Load()
	dbPath := flag.String("db", cfg.SQLiteDBPath, "path to the SQLite database")
	flag.Parse()

	if err := sqlite.RunMigrations(*dbPath); err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Migration failed")
	}
	log.Info().Str("db", *dbPath).Msg("Migrations applied")
}

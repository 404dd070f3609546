package main

import (
	"flag"

	log "github.com/sirupsen/logrus"

	"fundcontrol/pkg/config"
)

// Schema migration runner for deploy pipelines: applies all pending SQL
// migrations, or rolls back the last one with -down. Connects without
// AutoMigrate so the SQL files stay the single source of schema truth.
func main() {
	down := flag.Bool("down", false, "roll back the most recent migration instead of migrating up")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	config.ConnectDB()

	if *down {
		config.RollbackMigration()
		return
	}
	config.ExecuteMigrations()
}

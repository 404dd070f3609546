package main

import (
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"fundcontrol/internal/engine"
	"fundcontrol/pkg/config"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	config.InitDB()
	eng := engine.New(config.DB, engine.DefaultConfig())

	c := cron.New()

	// Nightly drift correction, off-peak.
	if _, err := c.AddFunc("0 2 * * *", func() {
		if err := RunNightlySweep(eng); err != nil {
			log.Errorf("> nightly sweep failed: %v", err)
		}
	}); err != nil {
		log.Fatal("Failed to register nightly sweep: ", err)
	}

	if _, err := c.AddFunc("@hourly", func() {
		if err := RecordFundMetricsSnapshots(eng); err != nil {
			log.Errorf("> fund metrics snapshot failed: %v", err)
		}
	}); err != nil {
		log.Fatal("Failed to register fund metrics snapshot: ", err)
	}

	log.Info("> schedule started")
	c.Start()
	select {}
}

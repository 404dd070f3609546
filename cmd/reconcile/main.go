package main

import (
	"flag"
	"fmt"

	log "github.com/sirupsen/logrus"

	"fundcontrol/internal/engine"
	"fundcontrol/pkg/config"
)

// One-shot repair sweep for operators. Prints the report and exits non-zero
// on failure so it can run from deploy pipelines.
func main() {
	scope := flag.String("scope", engine.ScopeAll, `sweep scope: "all" or an allocation id`)
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	config.InitDB()
	eng := engine.New(config.DB, engine.DefaultConfig())

	report, err := eng.Reconcile(*scope, "", func(p engine.BatchProgress) {
		log.Infof("batch %d: inspected=%d repaired=%d failed=%d", p.Batch, p.Inspected, p.Repaired, p.Failed)
	})
	if err != nil {
		log.Fatalf("reconcile failed: %v", err)
	}

	fmt.Printf("correlation_id=%s inspected=%d repaired=%d failed=%d anomalies=%d\n",
		report.CorrelationID, report.Inspected, report.Repaired, report.Failed, report.AnomalyCount)
}

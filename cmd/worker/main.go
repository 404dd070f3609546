package main

import (
	"encoding/json"
	"flag"

	logrus "github.com/sirupsen/logrus"

	"fundcontrol/internal/engine"
	"fundcontrol/pkg/config"
)

func main() {
	// A full sweep covers every allocation, so requests that queued up while
	// the worker was down are redundant; -purge drops them on startup.
	purge := flag.Bool("purge", false, "purge pending reconcile requests before consuming")
	flag.Parse()

	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	config.InitDB()

	// Initialize RabbitMQ
	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	eng := engine.New(config.DB, engine.DefaultConfig())

	publisher, err := config.NewPublisher()
	if err != nil {
		logrus.Fatal("Failed to create publisher: ", err)
	}
	defer publisher.Close()

	msgConsumer, err := config.NewConsumer(engine.ReconcileRequestQueue)
	if err != nil {
		logrus.Fatal("Failed to create consumer: ", err)
	}
	defer msgConsumer.Close()

	// Purge after NewConsumer so the queue declaration exists.
	if *purge {
		if err := config.PurgeQueue(engine.ReconcileRequestQueue); err != nil {
			logrus.Fatal("Failed to purge request queue: ", err)
		}
	}

	logrus.Info("Reconcile worker started, waiting for messages...")

	err = msgConsumer.Consume(func(msg []byte) error {
		var req engine.ReconcileRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			logrus.Errorf("Failed to unmarshal message: %v", err)
			return err
		}

		logrus.WithFields(logrus.Fields{
			"scope":          req.Scope,
			"correlation_id": req.CorrelationID,
		}).Info("Received reconcile request")

		report, err := eng.Reconcile(req.Scope, req.CorrelationID, nil)
		if err != nil {
			logrus.Errorf("Reconcile failed: %v", err)
			return err
		}

		if err := publisher.Publish(engine.ReconcileReportQueue, report); err != nil {
			logrus.Errorf("Failed to publish report: %v", err)
			return err
		}
		return nil
	})
	if err != nil {
		logrus.Fatal("Consumer stopped: ", err)
	}
}

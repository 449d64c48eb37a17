package main

import (
	"flag"

	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/config"
	"github.com/yoday/yoday/internal/repository"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if cfg.Storage.Driver != config.StorageDriverPostgres {
		logger.WithField("driver", cfg.Storage.Driver).Fatal("Migrations only apply to the postgres storage driver")
	}

	if err := repository.Migrate(cfg.Postgres.URL, *direction); err != nil {
		logger.WithError(err).Fatal("Migration failed")
	}
	logger.WithField("direction", *direction).Info("Migrations applied")
}

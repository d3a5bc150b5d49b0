package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rnr/backend/internal/domain/rnrform"
	"github.com/rnr/backend/internal/infrastructure/config"
	"github.com/rnr/backend/internal/infrastructure/logger"
	"github.com/rnr/backend/internal/infrastructure/persistence"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "print the planned tables without touching the database")
	flag.Parse()

	if err := run(*dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}
}

func run(dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.NewForEnvironment(cfg.App.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	models := []any{
		&rnrform.RnRForm{},
		&rnrform.RnRFormLine{},
	}

	if dryRun {
		for _, model := range models {
			log.Info("would migrate", zap.String("model", fmt.Sprintf("%T", model)))
		}
		return nil
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	log.Info("running migrations",
		zap.String("driver", cfg.Database.Driver),
		zap.Int("models", len(models)),
	)

	if err := db.DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	log.Info("migrations complete")
	return nil
}

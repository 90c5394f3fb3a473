package main

import (
	"log"
	"log/slog"

	"axiapac.com/timeclock/config"
	"axiapac.com/timeclock/core"
	"axiapac.com/timeclock/security"
	"axiapac.com/timeclock/web/api"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := core.NewLogger(cfg.Log)

	secret, err := security.DecodeSecret(cfg.Server.JWTSecret)
	if err != nil {
		log.Fatalf("JWT_SECRET: %v", err)
	}

	db, err := core.OpenDatabase(cfg.Server.Driver, cfg.Server.DSN, core.ParseLogLevel(cfg.Store.LogLevel))
	if err != nil {
		log.Fatal(err)
	}
	defer core.CloseDatabase(db)

	if err := api.Migrate(db); err != nil {
		log.Fatal(err)
	}
	if cfg.Server.JobsPath != "" {
		jobs, err := api.LoadJobs(cfg.Server.JobsPath)
		if err != nil {
			log.Fatal(err)
		}
		if err := api.SeedJobs(db, jobs); err != nil {
			log.Fatal(err)
		}
		logger.Info("jobs seeded", "count", len(jobs), "path", cfg.Server.JobsPath)
	}

	r := gin.Default()
	api.RegisterRoutes(r, db, secret)

	logger.Info("punch receiver listening", slog.String("addr", cfg.Server.Addr), slog.String("driver", cfg.Server.Driver))
	if err := r.Run(cfg.Server.Addr); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"log"

	"steel-copilot-be/internal/bootstrap"
	"steel-copilot-be/internal/config"
	"steel-copilot-be/internal/server"
	"steel-copilot-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database (optional: chat history falls back to memory)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Printf("[WARN] Unable to connect to GORM DB, using in-memory history: %v", err)
		} else {
			gormDB = db
		}
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	container.AuthService.StartExpirySweeper(context.Background())

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}

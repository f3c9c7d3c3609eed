package main

import (
    "log"
    "os"

    "github.com/joho/godotenv"

    "github.com/gin-gonic/gin"

    "github.com/nkodex/examsync_backend/internal/config"
    "github.com/nkodex/examsync_backend/internal/database"
    "github.com/nkodex/examsync_backend/internal/recognition"
    "github.com/nkodex/examsync_backend/internal/routes"
    "github.com/nkodex/examsync_backend/internal/ws"
)

func main() {
    // Load .env (non-fatal if missing in production)
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Connect(cfg)
    if err != nil {
        log.Fatalf("database connection failed: %v", err)
    }

    if err := database.Migrate(db); err != nil {
        log.Fatalf("database migration failed: %v", err)
    }

    if err := database.SeedAdmin(db, cfg); err != nil {
        log.Fatalf("admin seed failed: %v", err)
    }

    hub := ws.NewSyncHub()
    go hub.Run()

    // Cloud face matching is provisioned per deployment; the default build
    // runs with the provider disabled.
    var matcher recognition.FaceMatcher = recognition.Disabled{}

    r := gin.Default()
    routes.Register(r, db, cfg, hub, matcher)

    port := cfg.Port
    if port == "" {
        port = "8080"
    }

    if err := r.Run(":" + port); err != nil {
        log.Println("server exited with error:", err)
        os.Exit(1)
    }
}

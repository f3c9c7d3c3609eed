package config

import (
    "os"
    "strconv"
)

type Config struct {
    Port       string
    DBHost     string
    DBPort     string
    DBUser     string
    DBPassword string
    DBName     string
    DBSSLMode  string

    JWTSecret        string
    RefreshJWTSecret string
    AccessTokenTTLMinutes string // minutes
    RefreshTokenTTLDays   string // days

    AdminEmail    string
    AdminPassword string
    AdminFullName string

    // Sync engine
    SyncRetentionDays int
    MatchThreshold    float64
}

func Load() *Config {
    return &Config{
        Port:       getenv("PORT", "8080"),
        DBHost:     getenv("DB_HOST", "localhost"),
        DBPort:     getenv("DB_PORT", "5432"),
        DBUser:     getenv("DB_USER", "postgres"),
        DBPassword: getenv("DB_PASSWORD", "postgres"),
        DBName:     getenv("DB_NAME", "examsync_db"),
        DBSSLMode:  getenv("DB_SSLMODE", "disable"),

        JWTSecret:        getenv("JWT_SECRET", "supersecret_change_me"),
        RefreshJWTSecret: getenv("REFRESH_JWT_SECRET", getenv("JWT_SECRET", "supersecret_change_me")),
        AccessTokenTTLMinutes: getenv("ACCESS_TOKEN_TTL_MINUTES", "60"),
        RefreshTokenTTLDays:   getenv("REFRESH_TOKEN_TTL_DAYS", "30"),

        AdminEmail:    getenv("ADMIN_EMAIL", "admin@example.com"),
        AdminPassword: getenv("ADMIN_PASSWORD", "admin123"),
        AdminFullName: getenv("ADMIN_FULL_NAME", "Administrator"),

        SyncRetentionDays: getenvInt("SYNC_RETENTION_DAYS", 30),
        MatchThreshold:    getenvFloat("MATCH_THRESHOLD", 96.5),
    }
}

func getenv(key, fallback string) string {
    v := os.Getenv(key)
    if v == "" {
        return fallback
    }
    return v
}

func getenvInt(key string, fallback int) int {
    v := os.Getenv(key)
    if v == "" {
        return fallback
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        return fallback
    }
    return n
}

func getenvFloat(key string, fallback float64) float64 {
    v := os.Getenv(key)
    if v == "" {
        return fallback
    }
    f, err := strconv.ParseFloat(v, 64)
    if err != nil {
        return fallback
    }
    return f
}

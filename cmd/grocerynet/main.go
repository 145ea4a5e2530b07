package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/suqify/grocerynet/internal/backup"
	"github.com/suqify/grocerynet/internal/database"
	"github.com/suqify/grocerynet/internal/logging"
	"github.com/suqify/grocerynet/internal/mirror"
	"github.com/suqify/grocerynet/internal/model"
	"github.com/suqify/grocerynet/internal/server"
	"github.com/suqify/grocerynet/internal/store"
)

var errNoAdmin = errors.New("no admin account exists and GROCERYNET_ADMIN_USERNAME/GROCERYNET_ADMIN_PASSWORD are not set")

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(os.Getenv("GROCERYNET_LOG_LEVEL"), os.Getenv("GROCERYNET_LOG_FORMAT"))

	port := envOr("GROCERYNET_PORT", "8080")
	dbPath := envOr("GROCERYNET_DB_PATH", "grocerynet.db")
	mirrorPath := envOr("GROCERYNET_MIRROR_PATH", "grocerynet-mirror")

	jwtSecret := os.Getenv("GROCERYNET_JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("GROCERYNET_JWT_SECRET is required")
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Authorization depends on both roles existing; refuse to serve
	// requests against a half-provisioned database.
	if err := database.VerifyRoles(db, string(model.RoleAdmin), string(model.RoleSupplier)); err != nil {
		log.Fatalf("role verification failed: %v", err)
	}
	if err := ensureAdmin(db); err != nil {
		log.Fatalf("admin bootstrap failed: %v", err)
	}

	mirrorStore, err := mirror.Open(mirrorPath, logger)
	if err != nil {
		log.Fatalf("failed to open mirror store: %v", err)
	}
	defer mirrorStore.Close()

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("GROCERYNET_S3_ENDPOINT"),
			Bucket:    os.Getenv("GROCERYNET_S3_BUCKET"),
			Region:    envOr("GROCERYNET_S3_REGION", "auto"),
			AccessKey: os.Getenv("GROCERYNET_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("GROCERYNET_S3_SECRET_KEY"),
		},
		DBPath:        dbPath,
		Passphrase:    os.Getenv("GROCERYNET_BACKUP_PASSPHRASE"),
		Interval:      time.Duration(envInt("GROCERYNET_BACKUP_INTERVAL_HOURS", 24)) * time.Hour,
		RetentionDays: envInt("GROCERYNET_BACKUP_RETENTION_DAYS", 30),
	}

	srv := server.New(db, mirrorStore, jwtSecret, backupCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	srv.Start(ctx)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("grocerynet listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}

	srv.Stop()
	cancel()
}

// ensureAdmin guarantees at least one admin account exists. A fresh
// database is seeded from GROCERYNET_ADMIN_USERNAME and
// GROCERYNET_ADMIN_PASSWORD; without them an adminless deployment cannot
// provision suppliers, so startup fails instead.
func ensureAdmin(db *sql.DB) error {
	users := store.NewUserStore(db)
	count, err := users.CountByRole(model.RoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username := os.Getenv("GROCERYNET_ADMIN_USERNAME")
	password := os.Getenv("GROCERYNET_ADMIN_PASSWORD")
	if username == "" || password == "" {
		return errNoAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := users.Create(username, "", string(hash), "", "", model.RoleAdmin); err != nil {
		return err
	}
	log.Printf("seeded admin account %q", username)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
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

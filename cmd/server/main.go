package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mentislab/mentis/internal/api"
	"github.com/mentislab/mentis/internal/config"
	"github.com/mentislab/mentis/internal/db"
	"github.com/mentislab/mentis/internal/middleware"
	"github.com/mentislab/mentis/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Debug)
	defer func() { _ = logger.Sync() }()

	store, closeDB, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer closeDB()

	if err := api.SeedDefaults(store); err != nil {
		logger.Fatal("seed defaults", zap.Error(err))
	}

	rt := api.NewRouter(api.Options{
		Store:             store,
		Logger:            logger,
		JWTSecret:         []byte(cfg.JWTSecret),
		AdminPassword:     cfg.AdminPassword,
		AdminPasswordHash: cfg.AdminPasswordHash,
		TokenTTL:          cfg.TokenTTL,
		SessionTTL:        cfg.SessionTTL,
		GuardInterval:     cfg.GuardInterval,
		UploadDir:         cfg.UploadDir,
	})
	defer rt.Close()

	r := mux.NewRouter()
	rt.Register(r)

	commit := utils.SafeEnv("MENTIS_COMMIT", "dev")
	buildTime := utils.SafeEnv("MENTIS_BUILD_TIME", "")
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeInfo(w, map[string]any{"ok": true, "name": "Mentis API", "commit": commit, "build_time": buildTime})
	}).Methods(http.MethodGet)
	r.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeInfo(w, map[string]any{"commit": commit, "build_time": buildTime})
	}).Methods(http.MethodGet)

	if cfg.UploadDir != "" {
		fs := http.FileServer(http.Dir(cfg.UploadDir))
		r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", fs))
	}
	if cfg.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))
	}

	handler := middleware.Recover(logger, middleware.NoStore(middleware.SecureHeaders(middleware.CORS(r))))
	srv := &http.Server{Addr: cfg.Addr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Mentis server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func newLogger(debug bool) *zap.Logger {
	if debug {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return l
	}
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return l
}

// openStore picks SQLite when a path is configured, otherwise the in-memory
// store. closeDB is a no-op for the latter.
func openStore(cfg *config.Config, logger *zap.Logger) (api.Store, func(), error) {
	if cfg.DBPath == "" {
		logger.Info("no MENTIS_DB_PATH set, using in-memory store")
		return api.NewMemoryStore(), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, nil, err
	}
	dsn := "file:" + filepath.ToSlash(cfg.DBPath) + "?cache=shared&_busy_timeout=5000"
	sqliteDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(sqliteDB, cfg.MigrationsDir); err != nil {
		_ = sqliteDB.Close()
		return nil, nil, err
	}
	store, err := db.NewSQLiteStore(sqliteDB, logger.Named("sqlite"))
	if err != nil {
		_ = sqliteDB.Close()
		return nil, nil, err
	}
	return store, func() {
		if err := sqliteDB.Close(); err != nil {
			logger.Warn("close sqlite", zap.Error(err))
		}
	}, nil
}

func writeInfo(w http.ResponseWriter, v map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

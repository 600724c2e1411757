package main

import (
	"context"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"sec_filings/pkg/api/filings"
	"sec_filings/pkg/core/cache"
	"sec_filings/pkg/core/edgar"
	"sec_filings/pkg/core/summary"
)

// AppConfig is the server configuration, read from config/app.yaml.
type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	DataDir    string `yaml:"data_dir"`
	SelfHosted bool   `yaml:"self_hosted"`
	UserAgent  string `yaml:"user_agent"`
}

func loadConfig(path string) AppConfig {
	cfg := AppConfig{
		ListenAddr: ":8090",
		DataDir:    ".cache/filings",
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	yaml.Unmarshal(data, &cfg)
	return cfg
}

func main() {
	godotenv.Load()

	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := loadConfig("config/app.yaml")

	ctx := context.Background()

	var clientOpts []edgar.ClientOption
	clientOpts = append(clientOpts, edgar.WithLogger(log.Named("edgar")))
	if cfg.UserAgent != "" {
		clientOpts = append(clientOpts, edgar.WithUserAgent(cfg.UserAgent))
	}
	client := edgar.NewClient(clientOpts...)

	// DATABASE_URL enables the Postgres cache tier; the file tier under
	// data_dir works without it.
	var pool *pgxpool.Pool
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" && cfg.SelfHosted {
		var err error
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Warn("db cache tier unavailable", zap.Error(err))
			pool = nil
		}
	}

	directory := edgar.NewDirectory(client, cfg.DataDir, cfg.SelfHosted, log.Named("directory"))
	resolver := edgar.NewResolver(client, directory, log.Named("resolver"))
	store := cache.New(cfg.DataDir, cfg.SelfHosted, pool, log.Named("cache"))
	if err := store.EnsureSchema(ctx); err != nil {
		log.Warn("cache schema setup failed", zap.Error(err))
	}
	service := summary.NewService(client, resolver, store, log.Named("summary"))

	handler := filings.NewHandler(service, client, resolver, log.Named("api"))
	http.HandleFunc("/api/filings/summary", handler.HandleSummary)
	http.HandleFunc("/api/filings/recent", handler.HandleRecent)

	log.Info("filing engine listening",
		zap.String("addr", cfg.ListenAddr),
		zap.Bool("self_hosted", cfg.SelfHosted),
		zap.Bool("db_cache", pool != nil),
	)
	if err := http.ListenAndServe(cfg.ListenAddr, nil); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

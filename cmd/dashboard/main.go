package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"energydash/internal/ai"
	"energydash/internal/config"
	"energydash/internal/marketdata"
	"energydash/internal/server"
	"energydash/internal/storage"
	"energydash/internal/telegram"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.Database.SQLitePath + "?_fk=1")
	if err != nil {
		logger.Fatal("open sqlite", zap.Error(err))
	}
	defer db.Close()
	if err := storage.InitSchema(db); err != nil {
		logger.Fatal("init schema", zap.Error(err))
	}
	store := storage.NewStore(db)
	logger.Info("sqlite ready", zap.String("path", cfg.Database.SQLitePath))

	var provider marketdata.Provider
	switch cfg.Provider.Name {
	case "alpaca":
		provider = marketdata.NewAlpacaProvider(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, logger)
	default:
		provider = marketdata.NewYahooProvider(cfg.Provider.Proxy, logger)
	}
	logger.Info("provider ready", zap.String("name", cfg.Provider.Name))

	ttl := marketdata.TTLConfig{
		History:      cfg.TTL.History,
		Daily:        cfg.TTL.Daily,
		Fundamentals: cfg.TTL.Fundamentals,
	}
	svc := marketdata.NewService(provider, ttl, logger)

	var commentator *ai.Commentator
	if cfg.OpenAI.APIKey != "" {
		commentator = ai.NewCommentator(cfg.OpenAI.APIKey)
		logger.Info("commentary enabled")
	}

	var webhook func(w http.ResponseWriter, r *http.Request)
	if cfg.Telegram.BotToken != "" {
		bot, err := telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.WebhookURL, svc, store, commentator, logger)
		if err != nil {
			logger.Fatal("telegram init", zap.Error(err))
		}
		webhook = bot.WebhookHandler
		logger.Info("telegram bot ready")
	}

	srv := server.New(svc, store, commentator, logger)
	mux := srv.NewHTTPMux(webhook)
	addr := ":" + cfg.Server.Port
	logger.Info("listening", zap.String("addr", addr))
	if err := server.ListenAndServe(addr, mux); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

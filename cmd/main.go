package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	nairaramp "nairaramp_back"
	"nairaramp_back/pkg/cache"
	"nairaramp_back/pkg/config"
	"nairaramp_back/pkg/events"
	"nairaramp_back/pkg/handler"
	"nairaramp_back/pkg/notify"
	"nairaramp_back/pkg/nuban"
	"nairaramp_back/pkg/repository"
	"nairaramp_back/pkg/service"
	"nairaramp_back/pkg/solclient"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))
	logrus.Infoln("starting server")
	if err := godotenv.Load(); err != nil {
		logrus.Infof("no .env loaded: %s", err)
	}

	cfg, err := config.Load("configs")
	if err != nil {
		logrus.Fatalf("failed to load config: %s", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logrus.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos := newRepository(cfg)
	kv := newCache(ctx, cfg)

	settlement, err := solana.PublicKeyFromBase58(cfg.Settlement.Address)
	if err != nil {
		logrus.Fatalf("settlement.address is not a valid Solana address: %s", err)
	}
	tokens, err := service.NewTokens(cfg.Tokens)
	if err != nil {
		logrus.Fatalf("invalid token configuration: %s", err)
	}

	chain := solclient.New(solclient.Config{
		Endpoint:     cfg.Solana.RPCEndpoint,
		Commitment:   cfg.Solana.Commitment,
		PollInterval: cfg.Solana.PollInterval,
	})
	broker := events.NewBroker(64)

	oracle := service.NewRateOracle(service.RateOracleConfig{
		BaseURL:       cfg.Rates.CoinGeckoURL,
		APIKey:        cfg.Rates.APIKey,
		LocalCurrency: cfg.Conversion.LocalCurrency,
		Adjustment:    cfg.Rates.UsdFiatAdjustment,
		Interval:      cfg.Rates.PollInterval,
		Tokens:        tokens.All(),
	})
	balances := service.NewBalanceReader(chain, tokens, cfg.Balances.PollInterval)

	var verifier service.BankVerifier
	if cfg.Nuban.APIKey != "" {
		verifier = nuban.New(nuban.Config{
			BaseURL: cfg.Nuban.BaseURL,
			APIKey:  cfg.Nuban.APIKey,
			Timeout: cfg.Nuban.Timeout,
		})
	} else {
		logrus.Warn("nuban.api_key is not set, bank verification disabled")
	}

	notifier, err := notify.New(notify.Config{
		Provider:         cfg.Approval.Notifier,
		From:             cfg.Mail.From,
		FromName:         cfg.Mail.FromName,
		To:               cfg.Mail.To,
		DashboardURL:     cfg.Mail.DashboardURL,
		MailjetAPIKey:    cfg.Mail.MailjetAPIKey,
		MailjetSecretKey: cfg.Mail.MailjetSecretKey,
		SMTPHost:         cfg.Mail.SMTPHost,
		SMTPPort:         cfg.Mail.SMTPPort,
		SMTPUser:         cfg.Mail.SMTPUser,
		SMTPPassword:     cfg.Mail.SMTPPassword,
	})
	if err != nil {
		logrus.Fatalf("failed to set up notifier: %s", err)
	}

	services := service.NewService(service.Deps{
		Repos:    repos,
		Chain:    chain,
		Cache:    kv,
		Broker:   broker,
		Rates:    oracle,
		Balances: balances,
		Verifier: verifier,
		Tokens:   tokens,
		Settings: service.Settings{
			SettlementAddress:     settlement,
			LocalCurrency:         cfg.Conversion.LocalCurrency,
			FeePercent:            cfg.Conversion.FeePercent,
			DriftTolerancePct:     cfg.Conversion.DriftTolerancePct,
			ConfirmTimeout:        cfg.Solana.ConfirmTimeout,
			RequestTokenTTL:       cfg.Conversion.RequestTokenTTL,
			InFlightTTL:           cfg.Conversion.InFlightTTL,
			RecordFailedTransfers: cfg.Conversion.RecordFailedTransfers,
			VerificationCacheTTL:  cfg.Nuban.CacheTTL,
		},
	})
	watcher := service.NewPendingWatcher(repos.Transaction, notifier, broker, cfg.Conversion.LocalCurrency, cfg.Approval.PollInterval)

	go oracle.Run(ctx)
	go balances.Run(ctx)
	go watcher.Run(ctx)

	handlers := handler.NewHandler(services, handler.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AdminToken:     cfg.Admin.Token,
	})

	srv := new(nairaramp.Server)
	go func() {
		err := srv.Run(cfg.Server.Port, handlers.InitRoute(), nairaramp.ServerOptions{
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		})
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server stopped: %s", err)
		}
	}()
	logrus.WithField("port", cfg.Server.Port).Info("server started")

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("server shutdown: %s", err)
	}
	if closer, ok := kv.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logrus.Errorf("cache close: %s", err)
		}
	}
	if repos.DB != nil {
		if err := repos.DB.Close(); err != nil {
			logrus.Errorf("db close: %s", err)
		}
	}
}

func newRepository(cfg *config.Config) *repository.Repository {
	if cfg.DB.Driver == "memory" {
		logrus.Warn("using in-memory storage, data is lost on restart")
		return repository.NewMemoryRepository()
	}
	db, err := repository.NewPostgresDB(repository.Config{
		Host:            cfg.DB.Host,
		Port:            cfg.DB.Port,
		Username:        cfg.DB.Username,
		Password:        cfg.DB.Password,
		DBName:          cfg.DB.DBName,
		SSLMode:         cfg.DB.SSLMode,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		logrus.Fatalf("failed to connect to database: %s", err)
	}
	logrus.Info("database connected")
	return repository.NewRepository(db)
}

func newCache(ctx context.Context, cfg *config.Config) cache.Cache {
	if cfg.Redis.Enabled {
		rc := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			logrus.Fatalf("failed to connect to redis: %s", err)
		}
		logrus.Info("redis connected")
		return rc
	}
	mc := cache.NewMemoryCache()
	go mc.RunSweeper(ctx, time.Minute)
	return mc
}

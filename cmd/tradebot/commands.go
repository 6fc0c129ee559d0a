package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"tradebot-go/internal/bot"
	"tradebot-go/internal/config"
	"tradebot-go/internal/database"
	"tradebot-go/internal/ledger"
	"tradebot-go/internal/logger"
	"tradebot-go/internal/server"
	"tradebot-go/internal/telegram"
)

// setup loads the configuration and builds the logger shared by every command.
func setup(c *cli.Context) (config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(c.GlobalString("config"))
	if err != nil {
		return cfg, nil, fmt.Errorf("could not load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return cfg, nil, fmt.Errorf("could not initialize logger: %w", err)
	}
	return cfg, log, nil
}

// openLedger connects to the database and makes sure the schema exists.
func openLedger(ctx context.Context, cfg config.Database, log *zap.Logger) (*ledger.GormStore, error) {
	db, err := database.NewDatabase(cfg)
	if err != nil {
		return nil, err
	}

	store := ledger.NewGormStore(db, log)
	if err := store.Initialize(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func serveAction(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openLedger(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to open trade ledger", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.", zap.String("driver", cfg.Database.Driver))

	client := telegram.NewClient(cfg.Telegram, log)
	me, err := client.GetMe(ctx)
	if err != nil {
		log.Fatal("Failed to connect to Telegram Bot API", zap.Error(err))
	}
	log.Info("Successfully connected to Telegram.", zap.String("bot", me.Username))

	if cfg.Telegram.WebhookURL != "" {
		if err := client.SetWebhook(ctx, cfg.Telegram.WebhookURL); err != nil {
			log.Fatal("Failed to register webhook", zap.Error(err))
		}
	}

	processor := bot.NewProcessor(store, log)
	srv := server.NewServer(cfg.Server, log, me.Username, processor, client, store)
	srv.Start()

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Shutdown error", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
	return nil
}

func setWebhookAction(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	url := c.String("url")
	if url == "" {
		url = cfg.Telegram.WebhookURL
	}
	if url == "" {
		return errors.New("no webhook URL: pass --url or set telegram.webhook_url")
	}

	return telegram.NewClient(cfg.Telegram, log).SetWebhook(context.Background(), url)
}

func deleteWebhookAction(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}
	return telegram.NewClient(cfg.Telegram, log).DeleteWebhook(context.Background())
}

func execAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.ShowCommandHelp(c, "exec")
	}

	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()
	store, err := openLedger(ctx, cfg.Database, log)
	if err != nil {
		return err
	}

	reply := bot.NewProcessor(store, log).Handle(ctx, bot.Command{
		Name: c.Args().First(),
		Args: c.Args().Tail(),
	})
	fmt.Println(reply.Text)

	var persistenceErr *ledger.PersistenceError
	if errors.As(reply.Err, &persistenceErr) {
		return reply.Err
	}
	return nil
}

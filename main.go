package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gagbot/internal/bot"
	"github.com/iamwavecut/gagbot/internal/config"
	"github.com/iamwavecut/gagbot/internal/db/sqlite"
	handlers "github.com/iamwavecut/gagbot/internal/handlers/moderation"
	"github.com/iamwavecut/gagbot/internal/infra"
	"github.com/iamwavecut/gagbot/internal/infrastructure/telegram"
	"github.com/iamwavecut/gagbot/internal/lifecycle"
	"github.com/iamwavecut/gagbot/internal/mute"
	"github.com/iamwavecut/gagbot/internal/observability"
)

func main() {
	cfg := config.Get()
	log.SetFormatter(&config.GbFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	infra.Recoverable(3, "main", func() {
		run(ctx)
	})
}

func run(ctx context.Context) {
	cfg := config.Get()

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		log.WithError(err).Errorln("cant initialize bot api")
		time.Sleep(1 * time.Second)
		log.Fatalln("exiting")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}

	dbClient, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(), "gagbot.db")
	if err != nil {
		log.WithError(err).Fatalln("cant initialize database")
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.WithError(err).Error("cant close database")
		}
	}()

	service := bot.NewService(botAPI, dbClient)
	operations := telegram.NewOperations(botAPI)
	muteStore := mute.NewStore()

	bot.RegisterUpdateHandler("gag", handlers.NewGag(service, operations, muteStore))

	processor := bot.NewUpdateProcessor(service)
	runtime := lifecycle.NewRuntime(
		observability.NewServer(cfg.MetricsAddr),
		bot.NewPoller(botAPI, processor, cfg.UpdateWorkers),
	)

	if err := runtime.Start(ctx); err != nil {
		log.WithError(err).Fatalln("cant start runtime")
	}

	select {
	case <-ctx.Done():
		log.Infoln("shutdown signal received")
	case <-infra.MonitorExecutable(ctx):
		log.Errorln("executable file was modified")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := runtime.Stop(stopCtx); err != nil {
		log.WithError(err).Error("cant stop runtime cleanly")
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"battbot_backend/internal/catalog"
	"battbot_backend/internal/conversation"
	"battbot_backend/internal/leadapi"
	"battbot_backend/internal/scheduler"
	"battbot_backend/internal/supportboard"
	"battbot_backend/platform/config"
	"battbot_backend/platform/db"
	"battbot_backend/platform/logger"
	"battbot_backend/platform/redislock"
	"battbot_backend/platform/validator"

	"github.com/redis/go-redis/v9"
)

// The worker consumes conversation turns queued by the API webhook. It shares
// the API's composition root minus the HTTP layer.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	redisOpt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to parse redis url", "error", err)
		panic("failed to parse redis url: " + err.Error())
	}
	redisClient := redis.NewClient(redisOpt)
	defer redisClient.Close()
	locker := redislock.New(redisClient)

	enqueuer, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		panic("failed to initialize task queue client: " + err.Error())
	}
	defer enqueuer.Close()

	val := validator.New()

	boardClient := supportboard.NewClient(supportboard.Config{
		APIURL:    cfg.GetSupportBoardURL(),
		Token:     cfg.GetSupportBoardToken(),
		BotUserID: cfg.GetSupportBoardBotUserID(),
		Timeout:   20 * time.Second,
	})
	leadClient := leadapi.NewClient(leadapi.Config{
		BaseURL: cfg.GetLeadAPIURL(),
		APIKey:  cfg.GetLeadAPIKey(),
	})

	catalogModule := catalog.NewModule(pool, val, log)

	conversationModule, err := conversation.NewModule(conversation.Deps{
		Pool:     pool,
		Locker:   locker,
		Board:    boardClient,
		Catalog:  catalogModule.Service(),
		Leads:    leadClient,
		Enqueuer: enqueuer,
		AICfg:    cfg,
		SBCfg:    cfg,
		Log:      log,
	})
	if err != nil {
		log.Error("failed to initialize conversation module", "error", err)
		panic("failed to initialize conversation module: " + err.Error())
	}

	worker, err := scheduler.NewWorker(cfg, conversationModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("worker stopped")
}

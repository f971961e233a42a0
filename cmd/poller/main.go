package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/richardliu001/wallet-api/internal/config"
	"github.com/richardliu001/wallet-api/internal/logger"
	"github.com/richardliu001/wallet-api/internal/repo"
	"github.com/richardliu001/wallet-api/internal/service"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger("wallet-poller", cfg.Log.Level)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.Hash{},
	}
	defer kw.Close()

	host, _ := os.Hostname()
	owner := fmt.Sprintf("%s-%d", host, os.Getpid())

	repository := repo.NewRepository(gdb, rdb, kw, log)
	relay := service.NewOutboxRelay(repository, log, owner, cfg.Poller.LeaseTTL, cfg.Poller.BatchSize)

	log.Infow("wallet-poller started", "owner", owner, "topic", cfg.Kafka.Topic)
	relay.Run(ctx, cfg.Poller.Interval)
	log.Info("wallet-poller stopped")
}

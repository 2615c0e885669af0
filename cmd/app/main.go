package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/airretail/config"
	"github.com/Domenick1991/airretail/internal/bootstrap"
	"github.com/Domenick1991/airretail/internal/cache"
	"github.com/Domenick1991/airretail/internal/kafka"
	"github.com/Domenick1991/airretail/internal/pricing"
	"github.com/Domenick1991/airretail/internal/repository"
	"github.com/Domenick1991/airretail/internal/service/offers"
	"github.com/Domenick1991/airretail/internal/service/orders"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Offers.ReferenceCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	flightRepo := repository.NewFlightRepository(pool)
	offerRepo := repository.NewOfferRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)

	calc := pricing.NewCalculator(cfg.Offers.TaxRate, cfg.Offers.Currency)
	offerService := offers.NewOfferService(
		offerRepo,
		flightRepo,
		redisCache,
		calc,
		time.Duration(cfg.Offers.TTLMinutes)*time.Minute,
		offers.WithEventProducer(producer, cfg.Kafka.OrdersTopic),
	)
	orderService := orders.NewOrderService(
		orderRepo,
		offerRepo,
		flightRepo,
		offerService,
		producer,
		cfg.Kafka.OrdersTopic,
		orders.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	if err := bootstrap.Run(ctx, cfg, offerService, orderService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

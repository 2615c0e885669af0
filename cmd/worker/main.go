package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/airretail/config"
	"github.com/Domenick1991/airretail/internal/cache"
	"github.com/Domenick1991/airretail/internal/email"
	"github.com/Domenick1991/airretail/internal/kafka"
	"github.com/Domenick1991/airretail/internal/pricing"
	"github.com/Domenick1991/airretail/internal/repository"
	"github.com/Domenick1991/airretail/internal/service/offers"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
	calc := pricing.NewCalculator(cfg.Offers.TaxRate, cfg.Offers.Currency)
	offerService := offers.NewOfferService(
		offerRepo,
		flightRepo,
		redisCache,
		calc,
		time.Duration(cfg.Offers.TTLMinutes)*time.Minute,
		offers.WithEventProducer(producer, cfg.Kafka.OrdersTopic),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, emailSender.Send); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Worker.ExpirationCronSpec, func() {
		n, err := offerService.ExpireStaleOffers(ctx)
		if err != nil {
			log.Printf("expire offers error: %v", err)
			return
		}
		if n > 0 {
			log.Printf("expired %d offers", n)
		}
	}); err != nil {
		log.Fatalf("schedule expiry sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	s := <-sig
	log.Printf("received signal %v, shutting down", s)
}

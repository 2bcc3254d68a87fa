package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/index5/index5/internal/config"
	"github.com/index5/index5/internal/database"
	"github.com/index5/index5/internal/events"
	"github.com/index5/index5/internal/modules/allocation"
	"github.com/index5/index5/internal/modules/allocation/jobs"
	"github.com/index5/index5/internal/modules/basket"
	"github.com/index5/index5/internal/modules/clients"
	"github.com/index5/index5/internal/modules/ledger"
	"github.com/index5/index5/internal/modules/quotes"
	"github.com/index5/index5/internal/modules/rebalancing"
	"github.com/index5/index5/internal/scheduler"
	"github.com/index5/index5/internal/server"
	"github.com/index5/index5/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Index5 engine")

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(basket.Schema, clients.Schema, ledger.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Tax events go to Kafka when brokers are configured, otherwise to the log
	var sink events.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink := events.NewKafkaSink(cfg.KafkaBrokers, log)
		defer kafkaSink.Close()
		sink = kafkaSink
	} else {
		log.Warn().Msg("No Kafka brokers configured, tax events go to the log sink")
		sink = events.NewLogSink(log)
	}
	taxPublisher := events.NewPublisher(sink, events.Topics{
		TradeWithholding: cfg.WithholdingTopic,
		CapitalGains:     cfg.CapitalGainsTopic,
	}, log)

	quoteSource := quotes.NewFileSource(cfg.QuotesDir, log)

	ledgerStore := ledger.NewStore(db.Conn(), log)
	basketRepo := basket.NewRepository(db.Conn(), log)
	clientRepo := clients.NewRepository(db.Conn(), log)

	allocationEngine := allocation.NewEngine(ledgerStore, taxPublisher, log)
	rebalancingEngine := rebalancing.NewEngine(ledgerStore, clientRepo, quoteSource, taxPublisher, log)

	basketService := basket.NewService(basketRepo, rebalancingEngine, log)
	clientService := clients.NewService(clientRepo, ledgerStore, quoteSource, log)

	// Scheduler: hourly check for purchase days (5th/15th/25th, business-day shifted)
	sched := scheduler.New(log)
	purchaseJob := jobs.NewPurchaseJob(allocationEngine, basketRepo, clientRepo, ledgerStore, quoteSource, log)
	if err := sched.AddJob("@hourly", purchaseJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register purchase job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port:           cfg.Port,
		Log:            log,
		DevMode:        cfg.DevMode,
		BasketHandlers: basket.NewHandlers(basketService, log),
		ClientHandlers: clients.NewHandlers(clientService, log),
		EngineHandlers: allocation.NewHandlers(allocationEngine, basketRepo, clientRepo, ledgerStore, quoteSource, log),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

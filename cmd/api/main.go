package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"strategic-forecast/backend-go/internal/chat"
	"strategic-forecast/backend-go/internal/config"
	"strategic-forecast/backend-go/internal/forecast"
	"strategic-forecast/backend-go/internal/handlers"
	internalhttp "strategic-forecast/backend-go/internal/http"
	"strategic-forecast/backend-go/internal/logging"
	"strategic-forecast/backend-go/internal/models"
	"strategic-forecast/backend-go/internal/services"
)

func main() {
	_ = godotenv.Load(
		".env",
		".env.local",
		"../.env",
		"../.env.local",
		"backend-go/.env",
		"backend-go/.env.local",
	)
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.Environment)

	policy, err := forecast.ParsePolicy(cfg.Bridge.Policy)
	if err != nil {
		log.WithError(err).Fatal("invalid bridge policy")
	}

	cache := services.NewCache(cfg.Redis.URL, log)
	wb := services.NewWorldBankClient(cfg.WorldBank, cache, cfg.Cache.SourceTTL, log)
	prophet := services.NewProphetClient(cfg.Model, log)

	svc := forecast.NewService(
		forecast.NewResolver(wb, cfg.Resolver.Aliases, log),
		forecast.NewLoader(wb, cfg.History.Indicator, cfg.History.FromYear, cfg.History.ToYear),
		prophet,
		forecast.ServiceConfig{
			DefaultHorizon:        cfg.Model.DefaultHorizon,
			MaxHorizon:            cfg.Model.MaxHorizon,
			DefaultConfidence:     cfg.Model.DefaultConfidence,
			ChangepointPriorScale: cfg.Model.ChangepointPriorScale,
			YearlySeasonality:     cfg.Model.YearlySeasonality,
			Bridge: forecast.BridgeConfig{
				Policy:            policy,
				Lookback:          cfg.Bridge.Lookback,
				Anchors:           cfg.Bridge.Anchors,
				DefaultMultiplier: cfg.Bridge.DefaultMultiplier,
				Damping:           cfg.Bridge.Damping,
			},
		},
		log,
	)

	factors := forecast.NewFactorEstimator(wb, forecast.FactorConfig{
		CutoffYear: cfg.Factors.CutoffYear,
		Jitter:     cfg.Factors.Jitter,
		Indicators: forecast.FactorIndicators{
			Consumption: cfg.Factors.Indicators.Consumption,
			Investment:  cfg.Factors.Indicators.Investment,
			Government:  cfg.Factors.Indicators.Government,
			Exports:     cfg.Factors.Indicators.Exports,
		},
		Fallback: models.ExpenditureFactors{
			Consumption: cfg.Factors.Fallback.Consumption,
			Investment:  cfg.Factors.Fallback.Investment,
			Government:  cfg.Factors.Fallback.Government,
			Exports:     cfg.Factors.Fallback.Exports,
		},
	}, forecast.NewRand(cfg.Factors.Seed), log)

	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	capability := chat.FromConfig(initCtx, cfg.Chat, log)
	cancelInit()
	assistant := chat.NewAssistant(capability, chat.NewKnowledgeBase(), cfg.Chat.Timeout, log)

	h := internalhttp.NewRouter(cfg, handlers.Deps{
		Cache:     cache,
		Model:     prophet,
		Forecasts: svc,
		Factors:   factors,
		Chat:      assistant,
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"addr":          srv.Addr,
		"bridge_policy": policy,
		"cache":         cache.Backend(),
		"chat_ready":    capability.Status().Ready,
		"window":        []int{cfg.History.FromYear, cfg.History.ToYear},
	}).Info("strategic forecast backend listening")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server stopped")
	}
}

package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"CoinSentinel/internal/collector"
	"CoinSentinel/internal/config"
	"CoinSentinel/internal/metrics"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/notifier"
	"CoinSentinel/internal/recorder"
	"CoinSentinel/internal/scheduler"
	"CoinSentinel/internal/server"
	"CoinSentinel/internal/sound"
	"CoinSentinel/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitor: evaluation cycles, alerts, HTTP API and Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, sync, err := loadConfig()
		if err != nil {
			return err
		}
		defer sync()
		return serve(cfg)
	},
}

func newFetchers(cfg *config.Config) []collector.Fetcher {
	if cfg.Market.Mock {
		ex := collector.NewMockExchange()
		ex.SetListings(model.Listing{ID: "BTCUSDT", Base: "BTC"}, model.Listing{ID: "ETHUSDT", Base: "ETH"})
		ex.SetPrice("BTCUSDT", 50000, 1.2)
		ex.SetPrice("ETHUSDT", 3000, -0.8)
		return []collector.Fetcher{ex}
	}
	timeout := time.Duration(cfg.Market.TimeoutSeconds) * time.Second
	binance := collector.NewBinanceFetcher(cfg.Exchange.BaseURL, timeout, cfg.Proxy)
	binance.QuoteAsset = cfg.Exchange.QuoteAsset
	coingecko := collector.NewCoinGeckoFetcher(cfg.Aggregator.BaseURL, cfg.Aggregator.APIKey, timeout, cfg.Proxy)
	return []collector.Fetcher{binance, coingecko}
}

func newRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		zap.L().Warn("init sqlite recorder failed, using noop", zap.Error(err))
		return recorder.NewNoopRecorder()
	}
	return sr
}

func serve(cfg *config.Config) error {
	zap.L().Info("CoinSentinel starting")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.NewMetrics()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		c, err := collector.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zap.L().Warn("redis unavailable, prior quotes kept in memory", zap.Error(err))
		} else {
			rdb = c
			defer rdb.Close()
		}
	}

	col := collector.NewCollector(collector.NewQuoteCache(rdb), newFetchers(cfg)...)
	col.Metrics = m
	col.CandleInterval = cfg.Market.CandleInterval
	col.CandleLimit = cfg.Market.CandleLimit
	col.Concurrency = cfg.Market.Concurrency

	rules := store.NewManager(cfg.Rules.File)
	hist := store.OpenHistory(cfg.Rules.HistoryFile)

	rec := newRecorder(cfg)
	defer rec.Close()

	// config file and env take precedence over the rules document
	token, chatID := cfg.Telegram.BotToken, cfg.Telegram.ChatID
	if token == "" || chatID == "" {
		docToken, docChat := rules.Telegram()
		if token == "" {
			token = docToken
		}
		if chatID == "" {
			chatID = docChat
		}
	}
	tn := notifier.NewTelegramNotifier(token, chatID, cfg.Proxy)
	if !tn.Enabled() {
		zap.L().Info("telegram credentials not set, chat push disabled")
	}

	hub := server.NewHub()
	hub.AckTimeout = time.Duration(cfg.Prompt.AckTimeoutSeconds) * time.Second
	var prompter notifier.Prompter = notifier.LogPrompter{Delay: time.Duration(cfg.Prompt.LogDelaySeconds) * time.Second}
	if cfg.Server.Enabled {
		prompter = hub
	}

	var looper *sound.Looper
	if cfg.Sound.Enabled {
		looper = sound.NewLooper(sound.NewCommandPlayer(cfg.Sound.Command), filepath.Dir(cfg.Rules.File))
		looper.Metrics = m
	}

	disp := &notifier.Dispatcher{
		Pusher:   tn,
		Prompter: prompter,
		Sounds:   looper,
		History:  hist,
		Recorder: rec,
		Metrics:  m,
		Retries:  cfg.Telegram.Retries,
	}

	sched := scheduler.NewScheduler(ctx, col, rules, hist, disp, rec)
	sched.Metrics = m
	if err := sched.RegisterAll(cfg.Market.UniverseCron); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	if cfg.Server.Enabled {
		sched.AddListener(hub)
		go hub.Run(ctx)
		srv := server.New(rules, hist, sched, col, hub, m)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				errCh <- err
			}
		}()
	}

	sched.Start()

	if tn.Enabled() && cfg.Telegram.Polling {
		go tn.StartPolling(ctx, sched.HandleCommand)
		zap.L().Info("telegram polling started")
	}

	zap.L().Info("CoinSentinel is running. Press Ctrl+C to stop.", zap.String("rules", rules.Path()))

	var runErr error
	select {
	case <-ctx.Done():
		zap.L().Info("shutdown signal received, stopping")
	case runErr = <-errCh:
		zap.L().Error("http server failed", zap.Error(runErr))
		cancel()
	}

	sched.Stop()
	<-sched.Done()
	disp.Shutdown()
	disp.Wait()
	zap.L().Info("CoinSentinel stopped")
	return runErr
}

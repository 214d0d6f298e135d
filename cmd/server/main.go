package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/antitoken/collider/internal/chain"
	"github.com/antitoken/collider/internal/collider"
	"github.com/antitoken/collider/internal/config"
	"github.com/antitoken/collider/internal/metrics"
	"github.com/antitoken/collider/internal/quote"
	"github.com/antitoken/collider/internal/store"
	"github.com/antitoken/collider/internal/vote"
)

func main() {
	configPath := flag.String("config", os.Getenv("COLLIDER_CONFIG"), "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Distribution policy ---
	policy, _ := collider.PolicyByName(cfg.Policy)
	engine := collider.NewEngine(policy)
	slog.Info("distribution policy", "policy", engine.Policy().Name())

	var cleanup []func()
	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Redis ---
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.Error("invalid redis url", "err", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		slog.Info("Redis cache enabled")
	}

	// --- Initialize store ---
	var st store.Store
	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		pg := store.NewPostgresStore(pool)
		if cfg.Database.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				slog.Error("migration failed", "err", err)
				os.Exit(1)
			}
		}
		st = pg
		slog.Info("connected to PostgreSQL")

		if rdb != nil {
			st = store.NewCachedStore(st, rdb, cfg.Redis.StoreTTL)
		}
	} else {
		slog.Warn("database url not set, using in-memory store (votes will not persist)")
		st = store.NewMemoryStore()
	}

	// --- Market data ---
	var quotes quote.Source = quote.NewDexScreener(
		cfg.Market.DexScreenerURL, cfg.Market.AntiMint, cfg.Market.ProMint, cfg.Market.Timeout)
	if rdb != nil {
		quotes = quote.NewCached(quotes, rdb, cfg.Redis.QuoteTTL)
	}

	// --- Vote service ---
	var opts []vote.Option
	if cfg.Chain.RPCURL != "" {
		rpc := chain.NewClient(cfg.Chain.RPCURL, cfg.Chain.Timeout)
		opts = append(opts, vote.WithHoldings(chain.NewHoldings(rpc, cfg.Market.AntiMint, cfg.Market.ProMint)))
		slog.Info("on-chain balance check enabled")
	}

	wsHub := vote.NewWSHub()
	go wsHub.Run(ctx)

	voteSvc := vote.NewService(st, engine, quotes, wsHub, opts...)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"collider"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for live vote events; no request timeout.
		r.Get("/ws", wsHub.HandleWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

			// Stake preview and form edits.
			r.Post("/distribution", voteSvc.PreviewDistribution)
			r.Post("/allocation", voteSvc.EditAllocation)
			r.Get("/quotes", voteSvc.GetQuotes)

			// Vote ledger.
			r.Post("/ballot", voteSvc.PrepareBallot)
			r.Post("/votes", voteSvc.SubmitVote)
			r.Get("/votes", voteSvc.ListVotes)
			r.Get("/votes/{wallet}", voteSvc.GetVotes)
			r.Get("/balances/{wallet}", voteSvc.GetBalance)
			r.Get("/totals", voteSvc.GetTotals)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("collider listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down collider...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("collider stopped")
}

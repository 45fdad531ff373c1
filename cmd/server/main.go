package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/aggregate"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/chainverify"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/config"
	cronrunner "github.com/mfahriferdiansyah/domalend-sub001/internal/cron"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/db"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/handler"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/indexer"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/logger"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/metadata"
	gormrepository "github.com/mfahriferdiansyah/domalend-sub001/internal/repository/gorm"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/scoring"
)

const version = "0.1.0"

func main() {
	cfgPath := os.Getenv("DL_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("DL_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	indexerHTTP := &http.Client{Timeout: cfg.Indexer.Timeout}
	indexerClient := indexer.NewClient(indexerHTTP, cfg.Indexer.BaseURL, cfg.Indexer.PageLimit, cfg.Indexer.MaxPages)

	store := gormrepository.New(dbConn.Gorm)
	scoringHTTP := &http.Client{Timeout: cfg.Scoring.Timeout}
	scoreSvc := &scoring.Service{
		Repo:   store,
		Oracle: scoring.NewOracleClient(scoringHTTP, cfg.Scoring.BaseURL),
		Logger: logger,
		TTL:    cfg.Scoring.CacheTTL,
	}

	metadataHTTP := &http.Client{Timeout: cfg.Metadata.Timeout}
	metadataClient := metadata.NewClient(metadataHTTP, cfg.Metadata.BaseURL)

	agg := &aggregate.Aggregator{
		Source:             indexerClient,
		Scores:             scoreSvc,
		Metadata:           metadataClient,
		Logger:             logger,
		EnrichLimit:        cfg.Aggregator.EnrichConcurrency,
		AuctionMaxDuration: cfg.Aggregator.AuctionMaxDuration,
		ReserveRatio:       cfg.Aggregator.ReserveRatio,
	}
	if cfg.Chain.Enabled {
		chainHTTP := &http.Client{Timeout: cfg.Chain.Timeout}
		agg.Verify = chainverify.NewClient(chainHTTP, cfg.Chain.RPCURL, cfg.Chain.NFTContract)
		agg.AuctionContract = cfg.Chain.AuctionContract
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Version: version}
	healthHandler.Register(engine)
	loanHandler := &handler.LoanHandler{Agg: agg}
	loanHandler.Register(engine)
	poolHandler := &handler.PoolHandler{Agg: agg}
	poolHandler.Register(engine)
	auctionHandler := &handler.AuctionHandler{Agg: agg}
	auctionHandler.Register(engine)
	dashboardHandler := &handler.DashboardHandler{Agg: agg}
	dashboardHandler.Register(engine)
	scoreHandler := &handler.ScoreHandler{Svc: scoreSvc, Repo: store}
	scoreHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		_, err = cronRunner.Add("score-sweep", cfg.Scoring.SweepInterval, func(ctx context.Context) {
			n, err := scoreSvc.SweepExpired(ctx)
			if err != nil {
				logger.Warn("score sweep failed", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("expired domain scores removed", zap.Int64("count", n))
			}
		})
		if err != nil {
			logger.Warn("cron register score sweep failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	if cfg.Indexer.StreamURL != "" {
		stream := &indexer.Stream{
			URL:        cfg.Indexer.StreamURL,
			Reconnect:  cfg.Indexer.StreamReconnect,
			MaxBackoff: cfg.Indexer.StreamMaxBackoff,
			Logger:     logger,
		}
		notices := make(chan indexer.EventNotice, 64)
		go func() {
			if err := stream.Run(ctx, notices); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("event stream stopped", zap.Error(err))
			}
		}()
		// Notices are advisory: a new loan event means its domain's score
		// will be asked for soon, so warm the cache ahead of the read.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case n := <-notices:
					if n.Kind != "loan" || n.DomainName == "" {
						continue
					}
					warmCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
					if _, err := scoreSvc.Get(warmCtx, n.DomainName); err != nil {
						logger.Warn("score warm failed", zap.String("domain", n.DomainName), zap.Error(err))
					}
					cancel()
				}
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

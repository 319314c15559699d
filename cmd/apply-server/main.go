// cmd/apply-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"funding-apply/internal/api"
	"funding-apply/internal/common/aws"
	"funding-apply/internal/common/config"
	"funding-apply/internal/common/database"
	"funding-apply/internal/common/httpclient"
	"funding-apply/internal/common/logger"
	"funding-apply/internal/common/observability"
	"funding-apply/internal/docupload"
	"funding-apply/internal/draft"
	"funding-apply/internal/notify"
	"funding-apply/internal/pdfgen"
	"funding-apply/internal/pipeline"
	"funding-apply/internal/records"
	"funding-apply/internal/signature"
	"funding-apply/internal/storage"
	"funding-apply/internal/sweeper"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting apply server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch (optional) with retry ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init object storage with retry ---
	var objectStore *storage.MinioStore
	err = retryWithBackoff(func() error {
		var err error
		objectStore, err = storage.NewMinioStore(cfg.Storage, log)
		if err != nil {
			return err
		}
		return objectStore.EnsureBucket(ctx)
	}, 10, 2*time.Second, zapLog, "Object storage connection")
	if err != nil {
		zapLog.Fatal("object storage failed after retries", zap.Error(err))
	}
	zapLog.Info("Object storage ready")

	// --- Draft store and debounced saver ---
	draftStore := draft.NewStore(redisClient.Client, time.Duration(cfg.Draft.TTLHours)*time.Hour, log)
	saver := draft.NewSaver(draftStore, time.Duration(cfg.Draft.DebounceMillis)*time.Millisecond)
	defer saver.Stop()

	// --- Signature service ---
	ipClient := httpclient.NewClient(time.Duration(cfg.IPLookup.TimeoutSeconds) * time.Second)
	certs := signature.NewService(signature.NewIpifyLookup(cfg.IPLookup.URL, ipClient), log)

	// --- PDF generator ---
	generator := pdfgen.NewGenerator(time.Duration(cfg.Pipeline.PDFTimeoutSeconds)*time.Second, log)

	// --- Notifications ---
	var mailer *notify.Mailer
	if cfg.Notify.EmailEnabled || cfg.Notify.SNSEnabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		snsClient, err := aws.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		mailer = notify.NewMailer(cfg.Notify, sesClient, snsClient, log)
	}

	// --- Pipeline ---
	opts := pipeline.Options{
		Recorder:     records.NewRepository(pg.DB, log),
		DraftClearer: &draftClearer{store: draftStore, saver: saver},
		Obs:          obs,
	}
	if mailer != nil {
		opts.Notifier = mailer
	}
	if esClient != nil {
		opts.Indexer = records.NewIndexer(esClient.Client, log)
	}
	pipe := pipeline.New(certs, generator, objectStore, opts,
		time.Duration(cfg.Pipeline.StageTimeoutSeconds)*time.Second,
		time.Duration(cfg.Pipeline.SubmitIntervalSeconds)*time.Second,
		log)

	// --- Document uploader ---
	uploader := docupload.NewUploader(objectStore, docupload.Limits{
		MinBytes: cfg.Documents.MinFileBytes,
		MaxBytes: cfg.Documents.MaxFileBytes,
	}, log)

	// --- Stale draft sweeper ---
	sw := sweeper.New(redisClient.Client, time.Duration(cfg.Draft.RetentionDays)*24*time.Hour, log)
	if err := sw.Start(cfg.Draft.SweepSchedule); err != nil {
		zapLog.Fatal("sweeper schedule invalid", zap.Error(err))
	}
	defer sw.Stop()

	// --- HTTP server ---
	server := api.NewServer(draftStore, saver, pipe, uploader, log)
	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Router(cfg.Server.AllowedOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Dedicated metrics listener, kept off the public address.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		zapLog.Info("metrics server listening", zap.String("address", cfg.Server.MetricsAddress))
		if err := http.ListenAndServe(cfg.Server.MetricsAddress, mux); err != nil {
			zapLog.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}

// draftClearer bundles the store clear with cancelling any pending
// debounced save, so a cleared draft cannot be resurrected by a timer.
type draftClearer struct {
	store *draft.Store
	saver *draft.Saver
}

func (d *draftClearer) Clear(ctx context.Context, session string) {
	d.saver.Cancel(session)
	d.store.Clear(ctx, session)
}

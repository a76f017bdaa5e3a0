// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"seminar-workers/internal/common/camunda"
	"seminar-workers/internal/common/config"
	"seminar-workers/internal/common/database"
	"seminar-workers/internal/common/gate"
	"seminar-workers/internal/common/logger"
	"seminar-workers/internal/common/observability"

	// Evaluation Workers (4)
	agg "seminar-workers/internal/workers/evaluation/aggregate-scores"
	cls "seminar-workers/internal/workers/evaluation/classify-suitability"
	fde "seminar-workers/internal/workers/evaluation/flush-draft-entries"
	rnk "seminar-workers/internal/workers/evaluation/rank-applicants"

	// Placement Workers (2)
	asp "seminar-workers/internal/workers/placement/assign-placement"
	aap "seminar-workers/internal/workers/placement/auto-assign-placements"

	// Data Access Workers (1)
	qpr "seminar-workers/internal/workers/data-access/query-placement-roster"

	// Seminar Gate Workers (2)
	cak "seminar-workers/internal/workers/seminar/check-acknowledgment"
	rak "seminar-workers/internal/workers/seminar/record-acknowledgment"
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
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zeebeClient := camundaClient.GetClient()
	zapLog.Info("Zeebe client connected successfully")

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

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
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

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Shared acknowledgment gate ---
	ackGate := gate.New(
		pg.DB,
		redis.GetClient(),
		time.Duration(cfg.Evaluation.GateCacheTTL)*time.Second,
		log,
	)

	// --- START: Register ALL 9 Workers ---

	// --- 1. Evaluation Workers (4) ---
	if cfg.Workers[fde.TaskType].Enabled {
		handler := fde.NewHandler(fde.LoadConfig(), pg.DB, ackGate, log)
		startWorker(zeebeClient, fde.TaskType, cfg.Workers[fde.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[agg.TaskType].Enabled {
		handler := agg.NewHandler(agg.LoadConfig(), pg.DB, redis.GetClient(), log)
		startWorker(zeebeClient, agg.TaskType, cfg.Workers[agg.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[rnk.TaskType].Enabled {
		rnkCfg := rnk.LoadConfig()
		rnkCfg.IndexName = cfg.Evaluation.RankingIndex
		rnkCfg.CacheTTL = time.Duration(cfg.Evaluation.RankingCacheTTL) * time.Second
		handler := rnk.NewHandler(rnkCfg, pg.DB, ackGate, redis.GetClient(), esClient.Client, log)
		startWorker(zeebeClient, rnk.TaskType, cfg.Workers[rnk.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[cls.TaskType].Enabled {
		handler, err := cls.NewHandler(cls.HandlerOptions{
			AppConfig: cfg,
			Camunda:   camundaClient,
			Dependencies: cls.ServiceDependencies{
				Logger: log,
				DB:     pg.DB,
			},
		})
		if err != nil {
			zapLog.Fatal("failed to create classify-suitability handler", zap.Error(err))
		}
		startWorker(zeebeClient, cls.TaskType, cfg.Workers[cls.TaskType], handler.Handle, zapLog)
	}

	// --- 2. Placement Workers (2) ---
	if cfg.Workers[asp.TaskType].Enabled {
		handler := asp.NewHandler(asp.LoadConfig(), pg.DB, log)
		startWorker(zeebeClient, asp.TaskType, cfg.Workers[asp.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[aap.TaskType].Enabled {
		aapCfg := aap.LoadConfig()
		aapCfg.MaxAssignments = cfg.Placement.MaxAssignmentsPerRun
		handler := aap.NewHandler(aapCfg, pg.DB, log)
		startWorker(zeebeClient, aap.TaskType, cfg.Workers[aap.TaskType], handler.Handle, zapLog)
	}

	// --- 3. Data Access Workers (1) ---
	if cfg.Workers[qpr.TaskType].Enabled {
		handler := qpr.NewHandler(qpr.LoadConfig(), pg.DB, log)
		startWorker(zeebeClient, qpr.TaskType, cfg.Workers[qpr.TaskType], handler.Handle, zapLog)
	}

	// --- 4. Seminar Gate Workers (2) ---
	if cfg.Workers[cak.TaskType].Enabled {
		handler := cak.NewHandler(cak.LoadConfig(), ackGate, log)
		startWorker(zeebeClient, cak.TaskType, cfg.Workers[cak.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[rak.TaskType].Enabled {
		handler := rak.NewHandler(rak.LoadConfig(), ackGate, log)
		startWorker(zeebeClient, rak.TaskType, cfg.Workers[rak.TaskType], handler.Handle, zapLog)
	}

	zapLog.Info("All 9 workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			err := camundaClient.HealthCheck(r.Context())
			if err == nil {
				err = pg.Ping(r.Context())
			}
			if err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	camunda.NewWorker(
		client,
		taskType,
		wcfg.MaxJobsActive,
		time.Duration(wcfg.Timeout)*time.Millisecond,
		handlerFunc,
		log,
	)
}

package di

import (
	"context"
	"fmt"
	"time"

	"HistPull/internal/domain/repository"
	"HistPull/internal/handler/api"
	"HistPull/internal/partition"
	internalrepo "HistPull/internal/repository"
	"HistPull/internal/symbols"
	"HistPull/internal/usecase"
	"HistPull/pkg/cache"
	pkgch "HistPull/pkg/clickhouse"
	"HistPull/pkg/config"
	xhttp "HistPull/pkg/http"
	pkgkafka "HistPull/pkg/kafka"
	"HistPull/pkg/logger"
	"HistPull/pkg/metrics"
	"HistPull/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lcfg := &logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lcfg.Level == "" {
		lcfg.Level = "info"
	}
	if lcfg.Format == "" {
		lcfg.Format = "console"
	}
	if lcfg.Output == "" {
		lcfg.Output = "stdout"
	}
	return logger.New(lcfg)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client when the clickhouse
// backend is configured; otherwise the app runs without one.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Backend.Type != "clickhouse" {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Uniqueness on (symbol, timeframe, start_time) is the ReplacingMergeTree
	// ordering key: re-persisted candles collapse instead of duplicating.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (symbol String, timeframe String, start_time DateTime, open Float64, high Float64, low Float64, close Float64, volume Int64) ENGINE=ReplacingMergeTree ORDER BY (symbol, timeframe, start_time)", candleTable(cfg)),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func candleTable(cfg *config.Config) string {
	table := cfg.ClickHouse.Table
	if table == "" {
		table = "candles"
	}
	return cfg.ClickHouse.Database + "." + table
}

// ProvideKafkaProducer creates a Kafka producer when the kafka backend is
// configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideCandleStore creates ClickHouse candle storage when configured.
func ProvideCandleStore(chClient *pkgch.Client, cfg *config.Config) repository.CandleStore {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseCandleStore(chClient.DB(), candleTable(cfg))
}

// ProvideCandlePublisher creates a Kafka candle publisher when configured.
func ProvideCandlePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.CandlePublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaCandlePublisher(producer, cfg.Kafka.Topic)
}

// ProvideLocator creates the partition locator over the configured data dir.
func ProvideLocator(cfg *config.Config, l *logger.Logger) repository.PartitionLocator {
	return partition.NewLocator(cfg.Data.Dir, l)
}

// ProvideDecoder creates the partition decoder.
func ProvideDecoder() repository.PartitionDecoder {
	return partition.NewDecoder()
}

// ProvideClassifier creates the instrument code classifier.
func ProvideClassifier() symbols.Classifier {
	return symbols.NewPrefixClassifier()
}

// ProvideAggregationEngine wires the engine with its collaborators.
func ProvideAggregationEngine(
	locator repository.PartitionLocator,
	decoder repository.PartitionDecoder,
	classifier symbols.Classifier,
	m repository.Metrics,
	l *logger.Logger,
	cfg *config.Config,
) *usecase.AggregationEngine {
	return usecase.NewAggregationEngine(locator, decoder, classifier, m, l, cfg.Data.Workers, cfg.Data.Strict)
}

// ProvideResultCache builds the result cache: in-memory always, layered over
// Redis when enabled. Returns nil when caching is off.
func ProvideResultCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}

	memOpts := []cache.MemoryOption{}
	if cfg.Cache.MaxSize > 0 {
		memOpts = append(memOpts, cache.WithMemoryMaxSize(cfg.Cache.MaxSize))
	}

	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(memOpts...), nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix("histpull"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc, memOpts...), nil
}

// ProvideCandleProcessor creates the persistence processor for the configured
// backend.
func ProvideCandleProcessor(
	store repository.CandleStore,
	pub repository.CandlePublisher,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.CandleProcessor {
	if cfg.Backend.Type == "none" {
		return nil
	}
	return usecase.NewCandleProcessor(store, pub, m, cfg.Backend.Type)
}

// ProvideHistoricalDataUseCase creates the top-level use case.
func ProvideHistoricalDataUseCase(
	engine *usecase.AggregationEngine,
	processor *usecase.CandleProcessor,
	c cache.Service,
	l *logger.Logger,
	cfg *config.Config,
) *usecase.HistoricalDataUseCase {
	ttl := cfg.Cache.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return usecase.NewHistoricalDataUseCase(engine, processor, c, ttl, l)
}

// ProvideHTTPHandler creates the Echo handler for the historical endpoints.
func ProvideHTTPHandler(l *logger.Logger, uc *usecase.HistoricalDataUseCase, cfg *config.Config) xhttp.Handler {
	h := api.NewHistoricalEchoHandler(l, uc, cfg.Environment)
	if cfg.RateLimit.Capacity > 0 {
		h.SetRateLimit(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
	}
	if cfg.Data.DefaultTimeframe != "" {
		h.SetDefaultTimeframe(cfg.Data.DefaultTimeframe)
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	handler xhttp.Handler,
	uc *usecase.HistoricalDataUseCase,
	chClient *pkgch.Client,
	resultCache cache.Service,
) *server.App {
	return server.New(cfg, l, handler, uc, chClient, resultCache)
}

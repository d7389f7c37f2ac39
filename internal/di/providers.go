package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"StreamPulse/internal/domain/repository"
	"StreamPulse/internal/handler/api"
	internalrepo "StreamPulse/internal/repository"
	"StreamPulse/internal/service/binance"
	"StreamPulse/internal/service/toxicity"
	"StreamPulse/internal/service/twitch"
	"StreamPulse/internal/services/analytics"
	"StreamPulse/internal/usecase"
	"StreamPulse/pkg/cache"
	pkgch "StreamPulse/pkg/clickhouse"
	"StreamPulse/pkg/config"
	xhttp "StreamPulse/pkg/http"
	pkgkafka "StreamPulse/pkg/kafka"
	"StreamPulse/pkg/logger"
	"StreamPulse/pkg/metrics"
	"StreamPulse/pkg/queue"
	"StreamPulse/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lvl, format := cfg.Log.Level, cfg.Log.Format
	if lvl == "" {
		lvl = "info"
	}
	if format == "" {
		format = "console"
	}
	return logger.New(&logger.Config{Level: lvl, Format: format, Output: "stdout"})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer when the kafka backend is
// selected, nil otherwise.
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

// ProvideClickHouseClient creates a ClickHouse client and applies the event
// schema. Returns nil when the kafka backend is selected.
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.EventStoreSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideEventStore wraps the ClickHouse client as an event store.
func ProvideEventStore(chClient *pkgch.Client) repository.EventStore {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseEventStore(chClient)
}

// ProvideAlertQueue creates the Redis-backed alert queue, nil when disabled.
// The queue doubles as the sink for aggregated error logs.
func ProvideAlertQueue(cfg *config.Config, lgr *logger.Logger) *queue.RedisQueue {
	if !cfg.Alerts.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Alerts.Addr,
		Password: cfg.Alerts.Password,
		DB:       cfg.Alerts.DB,
	})
	q := queue.NewRedisPublisher(lgr, client)
	lgr.AddCollector(&logger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          "logs.aggregated",
		Publisher:      q,
	})
	return q
}

// ProvideToxicityClassifier wires the HTTP classifier with a prediction
// cache, Redis-backed when configured and in-memory otherwise. Without a
// service URL the classifier degrades to the all-zero default.
func ProvideToxicityClassifier(cfg *config.Config, lgr *logger.Logger) (repository.ToxicityClassifier, error) {
	if cfg.Toxicity.ServiceURL == "" {
		return toxicity.Disabled{}, nil
	}

	var svc cache.Service
	if cfg.Toxicity.Redis.Enabled {
		host, portStr, err := net.SplitHostPort(cfg.Toxicity.Redis.Addr)
		if err != nil {
			return nil, fmt.Errorf("toxicity redis addr: %w", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("toxicity redis port: %w", err)
		}
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(host),
			cache.WithRedisPort(port),
			cache.WithRedisPassword(cfg.Toxicity.Redis.Password),
			cache.WithRedisDB(cfg.Toxicity.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("toxicity cache: %w", err)
		}
		svc = cache.NewLayeredCache(rc)
	} else {
		svc = cache.NewMemoryCache()
	}

	ttl := cfg.Toxicity.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return toxicity.NewHTTPClassifier(cfg.Toxicity.ServiceURL, cfg.Toxicity.Timeout, lgr,
		toxicity.WithCache(svc, ttl)), nil
}

// ProvideChatDetector creates the chat anomaly detector from config.
func ProvideChatDetector(cfg *config.Config) *analytics.ChatAnomalyDetector {
	return analytics.NewChatAnomalyDetector(analytics.ChatAnomalyConfig{
		TimeWindowSeconds: cfg.Detectors.Chat.TimeWindowSeconds,
		ToxicityThreshold: cfg.Detectors.Chat.ToxicityThreshold,
		FreqThreshold:     cfg.Detectors.Chat.FreqThreshold,
		MaxAuthors:        cfg.Detectors.Chat.MaxAuthors,
	})
}

// ProvideMarketDetector creates the rolling Z-score detector from config.
func ProvideMarketDetector(cfg *config.Config) *analytics.MarketAnomalyDetector {
	return analytics.NewMarketAnomalyDetector(
		cfg.Detectors.Market.WindowSize,
		cfg.Detectors.Market.ZScoreThreshold,
	)
}

// ProvideEventProcessor creates the egress processor for the configured
// backend, with alerting when the queue is enabled.
func ProvideEventProcessor(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	store repository.EventStore,
	alertQueue *queue.RedisQueue,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.EventProcessor {
	var opts []usecase.ProcessorOption
	if store != nil {
		opts = append(opts, usecase.WithEventStore(store))
	}
	if alertQueue != nil {
		opts = append(opts, usecase.WithAlertSink(alertQueue))
	}

	var pub repository.Publisher
	if producer != nil {
		pub = internalrepo.NewKafkaPublisher(producer)
	}
	return usecase.NewEventProcessor(pub, m, lgr, cfg.Kafka.ChatTopic, cfg.Kafka.MarketTopic, opts...)
}

// ProvideChatAdapter builds the chat adapter with its live IRC stream and
// fallback simulator.
func ProvideChatAdapter(
	cfg *config.Config,
	classifier repository.ToxicityClassifier,
	detector *analytics.ChatAnomalyDetector,
	processor *usecase.EventProcessor,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.ChatAdapter {
	stream := twitch.New(
		cfg.Chat.Token,
		cfg.Chat.Nickname,
		cfg.Chat.Channel,
		cfg.Chat.WebSocketURL,
		cfg.Chat.IdleTimeout,
		lgr,
	)
	sim := twitch.NewSimulator(cfg.Chat.Channel, nil, lgr)
	return usecase.NewChatAdapter(stream, sim, classifier, detector, processor, m, lgr,
		usecase.ChatAdapterConfig{
			ConnectAttempts: cfg.Chat.ConnectAttempts,
			ReconnectDelay:  cfg.Chat.ReconnectDelay,
			RetryForever:    cfg.Chat.RetryForever,
		})
}

// ProvideMarketAdapter builds the market adapter with its live exchange
// stream and fallback simulator.
func ProvideMarketAdapter(
	cfg *config.Config,
	detector *analytics.MarketAnomalyDetector,
	processor *usecase.EventProcessor,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.MarketAdapter {
	stream := binance.New(
		cfg.Market.Symbol,
		cfg.Market.WebSocketURL,
		cfg.Market.PingInterval,
		lgr,
	)
	sim := binance.NewSimulator(cfg.Market.Symbol, nil, lgr)
	return usecase.NewMarketAdapter(stream, sim, detector, processor, m, lgr,
		usecase.MarketAdapterConfig{
			ConnectAttempts: cfg.Market.ConnectAttempts,
			ReconnectDelay:  cfg.Market.ReconnectDelay,
		})
}

// ProvideStatusHandler builds the HTTP operational surface.
func ProvideStatusHandler(
	chat *usecase.ChatAdapter,
	market *usecase.MarketAdapter,
	processor *usecase.EventProcessor,
	store repository.EventStore,
	chatDet *analytics.ChatAnomalyDetector,
	marketDet *analytics.MarketAnomalyDetector,
) xhttp.Handler {
	return api.NewStatusHandler(chat, market, processor, store, chatDet, marketDet)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	chat *usecase.ChatAdapter,
	market *usecase.MarketAdapter,
	processor *usecase.EventProcessor,
	handler xhttp.Handler,
	alertQueue *queue.RedisQueue,
) *server.App {
	return server.New(cfg, lgr, chat, market, processor, handler, alertQueue)
}

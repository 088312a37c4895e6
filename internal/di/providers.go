package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domrepo "github.com/Harry166/stro/internal/domain/repository"
	"github.com/Harry166/stro/internal/handler/api"
	"github.com/Harry166/stro/internal/handler/ws"
	mid "github.com/Harry166/stro/internal/middleware"
	internalrepo "github.com/Harry166/stro/internal/repository"
	"github.com/Harry166/stro/internal/scheduler"
	"github.com/Harry166/stro/internal/service/cache"
	"github.com/Harry166/stro/internal/service/finnhub"
	"github.com/Harry166/stro/internal/service/googlenews"
	"github.com/Harry166/stro/internal/service/newsapi"
	"github.com/Harry166/stro/internal/service/ratelimit"
	"github.com/Harry166/stro/internal/services/analytics"
	"github.com/Harry166/stro/internal/usecase"
	pkgcache "github.com/Harry166/stro/pkg/cache"
	pkgch "github.com/Harry166/stro/pkg/clickhouse"
	"github.com/Harry166/stro/pkg/config"
	xhttp "github.com/Harry166/stro/pkg/http"
	pkgkafka "github.com/Harry166/stro/pkg/kafka"
	applogger "github.com/Harry166/stro/pkg/logger"
	pkgmetrics "github.com/Harry166/stro/pkg/metrics"
	"github.com/Harry166/stro/pkg/queue"
	"github.com/Harry166/stro/pkg/server"
)

// Store is the relational backend holding watchlists and, by default, alert history.
type Store interface {
	domrepo.WatchlistStore
	domrepo.AlertStore
	Close() error
}

// NewsClient is the configured article source.
type NewsClient interface {
	domrepo.NewsProvider
	domrepo.HeadlineProvider
}

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus recorder on the default registry.
func ProvideMetrics() domrepo.Metrics {
	return pkgmetrics.New(nil)
}

// ProvideRedisClient creates a lazily connecting Redis client. It is only
// dialed when the redis cache backend or the job queue is enabled.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideCacheStore selects the TTL cache backend.
func ProvideCacheStore(ctx context.Context, cfg *config.Config, rc *redis.Client, l *applogger.Logger, m domrepo.Metrics) (cache.Store, error) {
	if cfg.Cache.Backend == "redis" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis cache ping: %w", err)
		}
		svc := pkgcache.NewRedisCacheFromClient(rc, cfg.Cache.KeyPrefix)
		return cache.NewRedisStore(svc, cfg.Engine.NewsStale, l, m), nil
	}
	s, err := cache.NewFileStore(cfg.Cache.Dir,
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
		cache.WithLogger(l),
		cache.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("file cache: %w", err)
	}
	return s, nil
}

// ProvideNewsBudget creates the shared news provider call budget.
func ProvideNewsBudget(cfg *config.Config) *ratelimit.Window {
	return ratelimit.NewWindow(cfg.RateLimit.Budget, cfg.RateLimit.Window)
}

// ProvideMarketData creates the Finnhub market data client.
func ProvideMarketData(cfg *config.Config, l *applogger.Logger) *finnhub.Client {
	return finnhub.New(cfg.Finnhub.APIKey, cfg.Finnhub.BaseURL, cfg.Engine.ProviderTimeout, finnhub.WithLogger(l))
}

// ProvideNewsClient selects NewsAPI or the Google News RSS scraper.
func ProvideNewsClient(cfg *config.Config) NewsClient {
	if cfg.News.Provider == "rss" {
		return googlenews.New(cfg.News.RSSURL, cfg.Engine.ProviderTimeout)
	}
	return newsapi.New(cfg.News.APIKey, cfg.News.BaseURL, cfg.Engine.ProviderTimeout)
}

// ProvideClassifier uses the remote model when configured, otherwise the lexicon.
func ProvideClassifier(cfg *config.Config) domrepo.SentimentClassifier {
	if cfg.Classifier.URL != "" {
		return analytics.NewHTTPSentimentClassifier(cfg.Classifier.URL, cfg.Engine.ProviderTimeout)
	}
	return analytics.NewLexiconClassifier()
}

func ProvideTrendScorer() *analytics.TrendScorer {
	return analytics.NewTrendScorer()
}

func ProvideSentimentAggregator(
	cfg *config.Config,
	store cache.Store,
	budget *ratelimit.Window,
	news NewsClient,
	classifier domrepo.SentimentClassifier,
	market *finnhub.Client,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.SentimentAggregator {
	return usecase.NewSentimentAggregator(store, budget, news, news, classifier, market, m, l, usecase.SentimentConfig{
		Fresh:           cfg.Engine.NewsFresh,
		Stale:           cfg.Engine.NewsStale,
		MarketNewsFresh: cfg.Engine.MarketNewsFresh,
		Lookback:        cfg.Engine.NewsLookback,
		Timeout:         cfg.Engine.ProviderTimeout,
	})
}

// ProvideKafkaProducer creates the producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	p, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return p, nil
}

// ProvideKafkaPublisher returns nil when there is no producer.
func ProvideKafkaPublisher(cfg *config.Config, p *pkgkafka.Producer) *internalrepo.KafkaPublisher {
	if p == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(p, cfg.Kafka.AlertsTopic, cfg.Kafka.RankingTopic)
}

// ProvideStore opens sqlite or postgres per storage.driver.
func ProvideStore(ctx context.Context, cfg *config.Config, l *applogger.Logger) (Store, error) {
	if cfg.Storage.Driver == "postgres" {
		s, err := internalrepo.NewGormStore(ctx, cfg.Storage.DSN, cfg.Environment == "production", l)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := internalrepo.NewSQLStore(ctx, cfg.Storage.DSN, l)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideClickHouseClient connects only when alert history lives in ClickHouse.
func ProvideClickHouseClient(ctx context.Context, cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Alerts.Backend != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithAsyncInsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: %w", err)
	}
	return client, nil
}

// ProvideAlertStore picks where alert history is appended.
func ProvideAlertStore(ctx context.Context, cfg *config.Config, st Store, ch *pkgch.Client, l *applogger.Logger) (domrepo.AlertStore, error) {
	if ch == nil {
		return st, nil
	}
	s, err := internalrepo.NewCHAlertStore(ctx, ch, cfg.ClickHouse.Database, l)
	if err != nil {
		return nil, fmt.Errorf("clickhouse alert store: %w", err)
	}
	return s, nil
}

func ProvideHub(l *applogger.Logger) *ws.Hub {
	return ws.NewHub(l, 0)
}

// ProvideAlertPipeline sits between the alert engine and delivery. With Kafka
// enabled alerts go to the alerts topic and reach the hub through the
// consumer; otherwise they are pushed to the hub directly.
func ProvideAlertPipeline(kp *internalrepo.KafkaPublisher, hub *ws.Hub, m domrepo.Metrics, l *applogger.Logger) *mid.AlertPipeline {
	var next domrepo.AlertPublisher = hub
	if kp != nil {
		next = kp
	}
	return mid.NewAlertPipeline(next, m, l,
		mid.WithBufferSize(1000),
		mid.WithUserRate(20, 1),
		mid.WithRetry(3, 200*time.Millisecond),
	)
}

func ProvideAlertEngine(
	cfg *config.Config,
	market *finnhub.Client,
	st Store,
	alerts domrepo.AlertStore,
	pipe *mid.AlertPipeline,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.AlertEngine {
	return usecase.NewAlertEngine(market, st, alerts, pipe, m, l, usecase.AlertConfig{
		GainPct:     cfg.Engine.AlertGainPct,
		LossPct:     cfg.Engine.AlertLossPct,
		DedupWindow: cfg.Engine.AlertDedupWindow,
	})
}

func ProvideWatchlistService(st Store, market *finnhub.Client, engine *usecase.AlertEngine, l *applogger.Logger) *usecase.WatchlistService {
	return usecase.NewWatchlistService(st, market, engine, l)
}

func ProvideStockService(
	cfg *config.Config,
	market *finnhub.Client,
	sentiment *usecase.SentimentAggregator,
	trend *analytics.TrendScorer,
	l *applogger.Logger,
) *usecase.StockService {
	return usecase.NewStockService(market, sentiment, sentiment, trend, l, 2*cfg.Engine.ProviderTimeout)
}

func ProvideRankingService(
	cfg *config.Config,
	market *finnhub.Client,
	sentiment *usecase.SentimentAggregator,
	trend *analytics.TrendScorer,
	kp *internalrepo.KafkaPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.RankingService {
	var pub domrepo.RankingPublisher
	if kp != nil {
		pub = kp
	}
	return usecase.NewRankingService(cfg.Engine.Symbols, market, sentiment, trend, pub, m, l, usecase.RankingConfig{
		BatchSize:  cfg.Engine.BatchSize,
		BatchPause: cfg.Engine.BatchPause,
		MinScore:   cfg.Engine.TrendingMin,
		TopN:       cfg.Engine.TopN,
	})
}

func ProvideAPIHandler(
	cfg *config.Config,
	l *applogger.Logger,
	ranking *usecase.RankingService,
	stocks *usecase.StockService,
	news *usecase.SentimentAggregator,
	budget *ratelimit.Window,
	watchlist *usecase.WatchlistService,
	alerts *usecase.AlertEngine,
) *api.Handler {
	rl := ratelimit.New(cfg.Server.ClientBurst, cfg.Server.ClientRPS)
	return api.NewHandler(l, ranking, stocks, news, budget, watchlist, alerts, rl)
}

// ProvideQueue creates the Redis job queue with the per-user sweep job, or nil when disabled.
func ProvideQueue(cfg *config.Config, rc *redis.Client, engine *usecase.AlertEngine, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled {
		return nil
	}
	q := queue.NewRedisQueue(rc, queue.Config{
		Name:        cfg.Queue.Name,
		Workers:     cfg.Queue.Workers,
		MaxRetries:  cfg.Queue.MaxRetries,
		PollTimeout: cfg.Queue.PollTimeout,
	}, l)
	q.RegisterJob(usecase.NewSweepUserJob(engine, l))
	return q
}

// ProvideScheduler returns nil when background jobs are disabled.
func ProvideScheduler(
	cfg *config.Config,
	ranking *usecase.RankingService,
	engine *usecase.AlertEngine,
	st Store,
	q *queue.RedisQueue,
	store cache.Store,
	l *applogger.Logger,
) *scheduler.Scheduler {
	if !cfg.Scheduler.Enabled {
		return nil
	}
	var jobs queue.Publisher
	if q != nil {
		jobs = q
	}
	return scheduler.New(scheduler.Config{
		RefreshEvery:    cfg.Scheduler.RefreshEvery,
		SweepEvery:      cfg.Scheduler.SweepEvery,
		CacheSweepEvery: cfg.Scheduler.CacheSweepEvery,
		CacheMaxAge:     cfg.Engine.NewsStale,
		JobTimeout:      cfg.Scheduler.JobTimeout,
	}, ranking, engine, st, jobs, store, l)
}

// ProvideKafkaConsumer delivers the alerts topic to websocket subscribers.
func ProvideKafkaConsumer(cfg *config.Config, hub *ws.Hub, m domrepo.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(pkgkafka.HookFunc(func(_ context.Context, topic string, _ []byte, attempt int, err error) {
		if err != nil {
			m.RecordError("kafka_consume")
			l.Debug("kafka handler attempt failed",
				applogger.String("topic", topic),
				applogger.Int("attempt", attempt),
				applogger.Error(err))
		}
	}))
	consumer.RegisterHandler(usecase.NewKafkaAlertsHandler(cfg.Kafka.AlertsTopic, hub, m))
	return consumer, nil
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.Handler, hub *ws.Hub) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{h, hub},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp assembles the lifecycle. Kafka log shipping is attached here
// since the logger is built before the producer.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	pipe *mid.AlertPipeline,
	sched *scheduler.Scheduler,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	hub *ws.Hub,
	st Store,
	ch *pkgch.Client,
	rc *redis.Client,
) *server.App {
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producer,
		})
	}

	c := server.Components{
		HTTP:     srv,
		Pipeline: pipe,
		Hub:      hub,
	}
	if sched != nil {
		c.Scheduler = sched
	}
	if q != nil {
		c.Queue = q
	}
	if consumer != nil {
		c.Consumer = consumer
	}
	c.Closers = append(c.Closers, server.Closer{Name: "store", Close: st.Close})
	if ch != nil {
		c.Closers = append(c.Closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	if producer != nil {
		c.Closers = append(c.Closers, server.Closer{Name: "kafka producer", Close: producer.Close})
	}
	c.Closers = append(c.Closers, server.Closer{Name: "redis", Close: rc.Close})
	return server.New(cfg, l, c)
}

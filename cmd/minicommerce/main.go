package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	catalogApp "github.com/davicafu/minicommerce/internal/catalog/application"
	catalogDomain "github.com/davicafu/minicommerce/internal/catalog/domain"
	catalogHttp "github.com/davicafu/minicommerce/internal/catalog/infra/inbound/http"
	catalogRepoPg "github.com/davicafu/minicommerce/internal/catalog/infra/outbound/db/postgre"
	catalogRepoSqlite "github.com/davicafu/minicommerce/internal/catalog/infra/outbound/db/sqlite"
	"github.com/davicafu/minicommerce/internal/config"
	"github.com/davicafu/minicommerce/internal/observability"
	orderApp "github.com/davicafu/minicommerce/internal/order/application"
	orderDomain "github.com/davicafu/minicommerce/internal/order/domain"
	orderHttp "github.com/davicafu/minicommerce/internal/order/infra/inbound/http"
	orderRepoPg "github.com/davicafu/minicommerce/internal/order/infra/outbound/db/postgre"
	orderRepoSqlite "github.com/davicafu/minicommerce/internal/order/infra/outbound/db/sqlite"
	"github.com/davicafu/minicommerce/internal/order/infra/outbound/idempotency"
	searchApp "github.com/davicafu/minicommerce/internal/search/application"
	searchDomain "github.com/davicafu/minicommerce/internal/search/domain"
	searchEvents "github.com/davicafu/minicommerce/internal/search/infra/inbound/events"
	searchHttp "github.com/davicafu/minicommerce/internal/search/infra/inbound/http"
	analyticsRepo "github.com/davicafu/minicommerce/internal/search/infra/outbound/analytics/clickhouse"
	searchRepoMongo "github.com/davicafu/minicommerce/internal/search/infra/outbound/index/mongodb"
	sharedDomain "github.com/davicafu/minicommerce/internal/shared/domain"
	infraEvents "github.com/davicafu/minicommerce/internal/shared/infra/events"
	sharedMiddleware "github.com/davicafu/minicommerce/internal/shared/infra/http/middleware"
	sharedBus "github.com/davicafu/minicommerce/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/minicommerce/internal/shared/infra/platform/cache"
	infraRelayer "github.com/davicafu/minicommerce/internal/shared/infra/relayer"
	"github.com/davicafu/minicommerce/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	// _ "github.com/mattn/go-sqlite3" // requires gcc
	_ "modernc.org/sqlite"
)

// ---------------- Main ----------------
func main() {
	logger.Init()          // inicializa zap
	log := logger.Logger() // obtiene logger estructurado
	defer log.Sync()       // flush buffers al salir

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("MCL_CONFIG_FILE"))
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	// ---------------- DB ----------------
	var (
		db          *sql.DB
		orderRepo   orderDomain.OrderRepository
		outboxRepo  sharedDomain.OutboxRepository
		catalogRepo catalogDomain.CatalogRepository
	)

	if cfg.Database.LocalDeployment {
		db, err = sql.Open("sqlite", cfg.Database.SQLitePath)
		if err != nil {
			log.Fatal("failed to open SQLite", zap.Error(err))
		}
		if err := orderRepoSqlite.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize SQLite", zap.Error(err))
		}
		if err := catalogRepoSqlite.InitCatalog(db); err != nil {
			log.Fatal("failed to initialize catalog tables", zap.Error(err))
		}
		repo := orderRepoSqlite.NewOrderRepoSQLite(db)
		orderRepo, outboxRepo = repo, repo
		catalogRepo = catalogRepoSqlite.NewCatalogRepoSQLite(db)
	} else {
		db, err = sql.Open("pgx", cfg.Database.PostgresDSN)
		if err != nil {
			log.Fatal("failed to open Postgres", zap.Error(err))
		}
		if err := orderRepoPg.InitPostgres(db); err != nil {
			log.Fatal("failed to initialize Postgres", zap.Error(err))
		}
		if err := catalogRepoPg.InitCatalog(db); err != nil {
			log.Fatal("failed to initialize catalog tables", zap.Error(err))
		}
		repo := orderRepoPg.NewOrderRepoPostgres(db)
		orderRepo, outboxRepo = repo, repo
		catalogRepo = catalogRepoPg.NewCatalogRepoPostgres(db)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal("failed to ping database", zap.Error(err))
	}

	// ------------- Redis / Cache -------------
	var cacheInstance sharedCache.Cache
	var idemStore orderDomain.IdempotencyStore

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache y lock en memoria:", zap.Error(err))
		memCache := sharedCache.NewInMemoryCache(cfg.Search.CacheTTL, 3*cfg.Search.CacheTTL)
		defer memCache.Stop()
		cacheInstance = memCache
		idemStore = idempotency.NewMemoryStore()
	} else {
		cacheInstance = sharedCache.NewRedisCache(rdb)
		idemStore = idempotency.NewRedisStore(rdb)
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// ------------- Observabilidad -------------
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	// ------------- Índice de búsqueda -------------
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoClient.Disconnect(context.Background())

	searchRepo, err := searchRepoMongo.NewSearchRepoMongoDB(ctx, mongoClient, cfg.Mongo.Database)
	if err != nil {
		log.Fatal("failed to initialize search index", zap.Error(err))
	}

	var analytics searchDomain.AnalyticsRepository
	if cfg.ClickHouse.Enabled {
		chRepo, err := analyticsRepo.NewOrderAnalyticsRepo(cfg.ClickHouse.Addr, cfg.ClickHouse.Database)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, analítica desactivada:", zap.Error(err))
		} else {
			analytics = chRepo
			log.Info("✅ ClickHouse conectado, analítica habilitada")
		}
	}

	// --------------- Servicios --------------
	productService := catalogApp.NewProductQueryService(catalogRepo)
	orderService := orderApp.NewOrderService(orderRepo, idemStore, productService, metrics, cfg.Orders.IdemTTL, log)
	searchService := searchApp.NewSearchService(searchRepo, cacheInstance, metrics, cfg.Search.CacheTTL, log)

	indexer := searchApp.NewIndexer(
		searchRepo, analytics, metrics,
		cfg.Indexer.BufferSize, cfg.Indexer.FlushInterval, cfg.Indexer.FlushBatch,
		cfg.Indexer.RetryAttempts, cfg.Indexer.RetryDelay, log,
	)
	indexer.Start(ctx)

	// ---------------- Events ---------------
	var eventPublisher sharedBus.EventPublisher
	orderConsumer := searchEvents.NewOrderCreatedConsumer(indexer, log)

	if cfg.Kafka.Enabled {
		log.Info("🚀 Usando Kafka como bus de eventos")

		writer := kafka.NewWriter(kafka.WriterConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			Balancer: &kafka.Hash{}, // misma clave -> misma partición
		})
		defer writer.Close()
		eventPublisher = infraEvents.NewKafkaPublisher(writer, log)

		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			GroupID:  cfg.Kafka.GroupID,
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		})
		defer reader.Close()

		consumerAdapter := infraEvents.NewConsumerAdapter(reader, orderConsumer, log)
		consumerAdapter.Start(ctx)
	} else {
		log.Info("⚡️Usando bus de eventos en memoria (canales de Go)")

		inMemoryBus := infraEvents.NewInMemoryEventBus(cfg.Kafka.Topic)
		eventPublisher = inMemoryBus

		eventsChannel := inMemoryBus.Subscribe(cfg.Indexer.BufferSize)
		log.Info("🎧 Iniciando listener en memoria para eventos de pedido")
		infraEvents.StartChannelConsumer(ctx, eventsChannel, orderConsumer)
	}

	// ------------ Outbox Worker ------------
	// Se podría ejecutar externamente
	outboxWorker := infraRelayer.NewOutboxWorker(
		outboxRepo, eventPublisher, metrics,
		cfg.Outbox.Interval, cfg.Outbox.BatchSize,
		cfg.Outbox.RetryAttempts, cfg.Outbox.RetryDelay, log,
	)
	outboxWorker.Start(ctx)

	backlogGauge := infraRelayer.NewBacklogGauge(outboxRepo, metrics, cfg.Outbox.BacklogInterval, log)
	backlogGauge.Start(ctx)

	// ---------------- HTTP ----------------
	orderHandler := orderHttp.NewOrderHandler(orderService)
	searchHandler := searchHttp.NewSearchHandler(searchService)
	productHandler := catalogHttp.NewProductHandler(productService)

	router := gin.New()
	router.Use(gin.Recovery(), sharedMiddleware.Correlation(), sharedMiddleware.RequestLogger(log))

	orderHttp.RegisterOrderRoutes(router, orderHandler)
	searchHttp.RegisterSearchRoutes(router, searchHandler)
	catalogHttp.RegisterProductRoutes(router, productHandler)

	if chRepo, ok := analytics.(*analyticsRepo.OrderAnalyticsRepo); ok {
		searchHttp.RegisterAnalyticsRoutes(router, searchHttp.NewAnalyticsHandler(chRepo))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := ":" + strconv.Itoa(cfg.HTTP.Port)
	log.Info("🚀 Server running",
		zap.String("url", "http://localhost"+addr),
	)
	if err := router.Run(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

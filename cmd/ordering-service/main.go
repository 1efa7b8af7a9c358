package main

import (
	"context"
	"flag"
	"time"

	"go.opentelemetry.io/otel"

	"unieats/internal/pkg/bootstrap"
	"unieats/internal/pkg/database"
	"unieats/internal/pkg/logger"
	"unieats/internal/pkg/metrics"
	"unieats/internal/pkg/redis"
	"unieats/internal/pkg/zookeeper"
	"unieats/internal/service/ordering/application"
	"unieats/internal/service/ordering/domain"
	"unieats/internal/service/ordering/infrastructure"
	"unieats/internal/service/ordering/infrastructure/rule"
	"unieats/internal/service/ordering/interfaces"
)

const serviceName = "ordering-service"

// main 是应用的组装根：创建并组装所有依赖项，然后启动服务
func main() {
	configPath := flag.String("config", "configs/ordering.yaml", "path to config file")
	flag.Parse()

	cfg, err := bootstrap.LoadConfig(*configPath)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(serviceName, cfg.App.LogLevel)
	log := logger.Logger()

	// 持久化
	db, err := database.NewMySQL(cfg.Infra.MysqlDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := db.AutoMigrate(
		&infrastructure.OrderModel{},
		&infrastructure.OrderLineModel{},
		&infrastructure.ProductModel{},
		&infrastructure.ProductIngredientModel{},
		&infrastructure.ComboModel{},
		&infrastructure.ComboProductModel{},
		&infrastructure.IngredientModel{},
		&infrastructure.PromotionModel{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	redisClient, err := redis.NewClient(context.Background(), cfg.Infra.Redis.Addr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// 订单级分布式锁
	zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, 5*time.Second)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to zookeeper")
	}
	orderLocker := zookeeper.NewLocker(zkConn, "order")

	// 库存台账：默认 Redis（Lua 原子扣减），可切到 MySQL（全局锁 + 事务）
	var ledger domain.InventoryLedger
	switch cfg.Infra.InventoryBackend {
	case "mysql":
		ledger = infrastructure.NewSQLInventoryLedger(db, zookeeper.NewLocker(zkConn, "ledger"))
	default:
		ledger, err = infrastructure.NewRedisInventoryLedger(redisClient)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize inventory ledger")
		}
	}

	// 规则引擎
	ruleEngine, err := rule.NewCELRuleEngine()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize rule engine")
	}

	// 事件扇出：Kafka + 厨房大屏
	kafkaProducer := infrastructure.NewKafkaEventProducer(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrderEventTopic)
	hub := interfaces.NewKitchenHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)
	producer := infrastructure.NewFanoutProducer(kafkaProducer, hub)

	service := application.NewOrderApplicationService(
		infrastructure.NewGormOrderRepository(db),
		infrastructure.NewGormCatalogRepository(db),
		infrastructure.NewGormPromotionRepository(db),
		ledger,
		ruleEngine,
		producer,
		orderLocker,
		otel.Tracer(serviceName),
		metrics.NewOrderingMetrics(),
		cfg.App.FeatureFlags.EnablePromotions,
	)
	handler := interfaces.NewOrderingHandler(service, hub)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			stopHub()
			if err := kafkaProducer.Close(); err != nil {
				log.Error().Err(err).Msg("error closing kafka producer")
			}
			if err := redisClient.Close(); err != nil {
				log.Error().Err(err).Msg("error closing redis client")
			}
			zkConn.Close()
		},
	})
}

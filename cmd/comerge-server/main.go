package main

import (
	"context"
	"flag"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"comerge/internal/pkg/bootstrap"
	"comerge/internal/pkg/cache"
	"comerge/internal/pkg/config"
	"comerge/internal/pkg/database"
	"comerge/internal/pkg/logger"
	"comerge/internal/pkg/tracing"
	orderapp "comerge/internal/service/order/application"
	orderinfra "comerge/internal/service/order/infrastructure"
	"comerge/internal/service/order/infrastructure/adapter"
	orderhttp "comerge/internal/service/order/interfaces"
	"comerge/internal/service/order/port"
	productapp "comerge/internal/service/product/application"
	productinfra "comerge/internal/service/product/infrastructure"
	producthttp "comerge/internal/service/product/interfaces"
)

const serviceName = "comerge-server"

// main 是应用的组装根: 创建并装配所有依赖，然后交给 bootstrap 运行。
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config failed")
	}

	logger.Init(cfg.Logging, serviceName)

	shutdownTracer, err := tracing.Init(cfg.Jaeger, serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("init tracing failed")
	}
	tracer := otel.Tracer(serviceName)

	db, err := database.Open(cfg.MySQL)
	if err != nil {
		log.Fatal().Err(err).Msg("open mysql failed")
	}
	if err := db.AutoMigrate(
		&productinfra.ProductModel{},
		&orderinfra.OrderModel{},
		&orderinfra.OrderItemModel{},
		&productinfra.StockLogModel{},
	); err != nil {
		log.Fatal().Err(err).Msg("migrate schema failed")
	}

	cacheClient := cache.New(cfg.Redis)

	productRepo := productinfra.NewGormProductRepository(db, cacheClient)
	orderRepo := orderinfra.NewGormOrderRepository(db, cacheClient)
	uow := orderinfra.NewGormUnitOfWork(db)

	var publisher port.EventPublisher
	var kafkaPublisher *adapter.OrderKafkaPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher = adapter.NewOrderKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		publisher = kafkaPublisher
	}

	orderService := orderapp.NewOrderService(orderRepo, productRepo, uow, publisher, tracer, cfg.Server.LockWaitTimeout.Std())
	productService := productapp.NewProductService(productRepo, uow, tracer)

	orderHandler := orderhttp.NewOrderHandler(orderService)
	productHandler := producthttp.NewProductHandler(productService)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.Server.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			orderHandler.RegisterRoutes(appCtx.Mux)
			productHandler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: []func(ctx context.Context) error{
			func(ctx context.Context) error { return shutdownTracer(ctx) },
			func(context.Context) error { return cacheClient.Close() },
			func(context.Context) error {
				if kafkaPublisher != nil {
					return kafkaPublisher.Close()
				}
				return nil
			},
			func(context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		},
	})
}

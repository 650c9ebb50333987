package main

import (
	"flag"
	"fmt"

	"github.com/RentalCars/RentalCars/internal/common/config"
	"github.com/RentalCars/RentalCars/internal/common/db"
	"github.com/RentalCars/RentalCars/internal/common/logger"
	"github.com/RentalCars/RentalCars/internal/common/server"
	"github.com/RentalCars/RentalCars/internal/common/tracing"
	"github.com/RentalCars/RentalCars/internal/mq"
	"github.com/RentalCars/RentalCars/internal/rental"
	"github.com/RentalCars/RentalCars/internal/renter"
	"github.com/RentalCars/RentalCars/internal/vehicle"
	"github.com/gin-gonic/gin"
)

var (
	configPath = flag.String("config", "configs/rental-service.json", "配置文件路径")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Backend, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪（InitTracer 已注册为全局 tracer）
	_, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}

	// 初始化数据库
	gormDB, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}
	if err := gormDB.AutoMigrate(&vehicle.Vehicle{}, &renter.Renter{}, &rental.Rental{}); err != nil {
		log.Fatalf("failed to migrate mysql schema: %v", err)
	}

	// 初始化事件发布（失败不阻塞服务启动，降级为不发事件）
	var events rental.EventPublisher
	publisher, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Warnf("failed to connect to RabbitMQ, events disabled: %v", err)
	} else {
		defer publisher.Close()
		events = publisher
	}

	vehicleRepo := vehicle.NewRepo(gormDB)
	renterRepo := renter.NewRepo(gormDB)
	store := rental.NewGormStore(gormDB)
	svc := rental.NewService(store, vehicleRepo, renterRepo, events, log)

	// 启动统一的 HTTP 服务模板
	if err := server.RunHTTPServer(cfg, log, func(r *gin.Engine) error {
		api := r.Group("/api")
		vehicle.NewHandler(vehicleRepo).Register(api)
		renter.NewHandler(renterRepo).Register(api)
		rental.NewHandler(svc).Register(api)
		return nil
	}); err != nil {
		log.Fatalf("rental-service exited with error: %v", err)
	}
}

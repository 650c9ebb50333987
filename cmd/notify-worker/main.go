package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/RentalCars/RentalCars/internal/common/config"
	"github.com/RentalCars/RentalCars/internal/common/logger"
	"github.com/RentalCars/RentalCars/internal/mq"
)

var (
	configPath = flag.String("config", "configs/rental-service.json", "配置文件路径")
)

// notify-worker 消费租约事件并记录通知日志。
// 真正的通知渠道（邮件/短信）在这里接入。
func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Log.Backend, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer, err := mq.NewConsumer(
		cfg.RabbitMQ.URL,
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.Queue,
		[]string{"rental.*"},
	)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer consumer.Close()

	deliveries, err := consumer.Deliveries(ctx)
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	log.Infof("notify-worker consuming queue %s", cfg.RabbitMQ.Queue)

	for {
		select {
		case <-ctx.Done():
			log.Info("notify-worker shutting down")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Warn("delivery channel closed")
				return
			}

			var ev mq.RentalEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				log.Warnf("drop malformed event key=%s: %v", d.RoutingKey, err)
				_ = d.Nack(false, false)
				continue
			}

			log.WithFields(map[string]interface{}{
				"key":       d.RoutingKey,
				"rentalId":  ev.RentalID,
				"renterId":  ev.RenterID,
				"vehicleId": ev.VehicleID,
				"startDate": ev.StartDate,
				"endDate":   ev.EndDate,
				"price":     ev.Price,
			}).Info("rental notification")

			_ = d.Ack(false)
		}
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lingamvamshikrishnareddy/curry/apperrors"
	"github.com/lingamvamshikrishnareddy/curry/cache"
	"github.com/lingamvamshikrishnareddy/curry/controllers"
	"github.com/lingamvamshikrishnareddy/curry/database"
	"github.com/lingamvamshikrishnareddy/curry/gateway"
	"github.com/lingamvamshikrishnareddy/curry/kafka"
	"github.com/lingamvamshikrishnareddy/curry/logger"
	"github.com/lingamvamshikrishnareddy/curry/notifier"
	"github.com/lingamvamshikrishnareddy/curry/realtime"
	"github.com/lingamvamshikrishnareddy/curry/repository"
	"github.com/lingamvamshikrishnareddy/curry/routes"
	"github.com/lingamvamshikrishnareddy/curry/services"
)

func main() {
	// Load .env if present; real deployments inject env directly.
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger.Initialize(cfg.Environment)
	defer logger.Log.Sync()

	// Mongo: single database, indexes created up front so the unique
	// orderId constraint on deliveries exists before the first write.
	if err := database.ConnectWithConfig(cfg.MongoURI, cfg.MongoDatabase); err != nil {
		logger.Log.Fatal("mongo connection failed", zap.Error(err))
	}
	defer database.Close()

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 15*time.Second)
	if err := database.EnsureIndexes(indexCtx); err != nil {
		logger.Log.Fatal("index creation failed", zap.Error(err))
	}
	cancelIndex()

	redisClient := database.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	statusCache := cache.NewRedisStatusCache(redisClient)
	subscriberStore := cache.NewRedisSubscriberStore(redisClient)

	orderRepo := repository.NewMongoOrderRepository(database.DB)
	paymentRepo := repository.NewMongoPaymentRepository(database.DB)
	deliveryRepo := repository.NewMongoDeliveryRepository(database.DB)
	txRunner := repository.NewMongoTxRunner(database.MongoClient)

	gw, err := gateway.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	if err != nil {
		logger.Log.Fatal("gateway init failed", zap.Error(err))
	}

	var notify notifier.Notifier
	if cfg.SNSTopicARN != "" {
		snsNotifier, err := notifier.NewSNSNotifier(context.Background(), cfg.SNSTopicARN, logger.Log)
		if err != nil {
			logger.Log.Fatal("sns init failed", zap.Error(err))
		}
		notify = snsNotifier
	} else {
		logger.Log.Warn("SNS_TOPIC_ARN not set, notifications go to the log only")
		notify = &notifier.LogNotifier{Logger: logger.Log}
	}

	var producer kafka.ProducerAPI
	if cfg.KafkaBrokers != "" {
		kp := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		defer kp.Close()
		producer = kp
	} else {
		logger.Log.Warn("KAFKA_BROKERS not set, lifecycle events disabled")
		producer = kafka.NopProducer{}
	}

	hub := realtime.NewHub(deliveryRepo, subscriberStore, logger.Log)
	go hub.Run()

	orderService := services.NewOrderService(orderRepo, paymentRepo, producer, cfg.UPIID, logger.Log)
	paymentService := services.NewPaymentService(paymentRepo, orderRepo, gw, producer, notify, logger.Log)
	deliveryService := services.NewDeliveryService(deliveryRepo, orderRepo, txRunner, statusCache, hub, notify, producer, logger.Log)

	orderController := controllers.NewOrderController(orderService)
	paymentController := controllers.NewPaymentController(paymentService, orderService)
	deliveryController := controllers.NewDeliveryController(deliveryService)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.RequestLogger(), gin.Recovery(), apperrors.ErrorMiddleware())

	routes.Register(router, orderController, paymentController, deliveryController, hub, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Log.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("shutdown error", zap.Error(err))
	}
	logger.Log.Info("server shutdown complete")
}

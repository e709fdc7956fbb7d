package main

import (
	"fmt"
	"os"
)

type Config struct {
	Port              string
	Environment       string
	MongoURI          string
	MongoDatabase     string
	RedisURL          string
	JWTSecret         string
	RazorpayKeyID     string
	RazorpayKeySecret string
	UPIID             string
	KafkaBrokers      string
	KafkaTopic        string
	SNSTopicARN       string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DB", "curry"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		UPIID:             getEnv("UPI_ID", "curry@upi"),
		KafkaBrokers:      os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:        getEnv("ORDER_EVENTS_TOPIC", "order.lifecycle"),
		SNSTopicARN:       os.Getenv("SNS_TOPIC_ARN"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		return nil, fmt.Errorf("razorpay credentials incomplete")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

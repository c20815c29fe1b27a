package global

import (
	"testing"
	"time"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.HTTPAddr != ":3001" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.MongoURI != "mongodb://localhost:27017/hoodhelp" || cfg.MongoDatabase != "hoodhelp" {
		t.Errorf("mongo = %q/%q", cfg.MongoURI, cfg.MongoDatabase)
	}
	if cfg.JWTSecret != "fallback-secret" || cfg.JWTExpiresIn != 7*24*time.Hour {
		t.Errorf("jwt = %q %v", cfg.JWTSecret, cfg.JWTExpiresIn)
	}
	if cfg.ClientURL != "http://localhost:5173" {
		t.Errorf("ClientURL = %q", cfg.ClientURL)
	}
	if cfg.RedisEnabled() || cfg.NatsEnabled() || cfg.KafkaEnabled() {
		t.Error("optional integrations should be disabled by default")
	}
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"HTTP_ADDR":      ":8080",
		"JWT_SECRET":     "s3cret",
		"JWT_EXPIRES_IN": "2h",
		"NATS_SERVERS":   "nats://a:4222,nats://b:4222",
		"KAFKA_BROKERS":  "k1:9092",
		"KAFKA_TOPIC":    "chat.audit",
		"REDIS_ADDR":     "127.0.0.1:6379",
		"WS_SEND_QUEUE":  "0",
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.JWTOptions().TTL != 2*time.Hour {
		t.Errorf("unexpected %+v", cfg)
	}
	if got := cfg.Nats().Servers; len(got) != 2 || got[1] != "nats://b:4222" {
		t.Errorf("nats servers = %v", got)
	}
	if k := cfg.Kafka(); k.Topic != "chat.audit" || len(k.Brokers) != 1 {
		t.Errorf("kafka = %+v", k)
	}
	if !cfg.RedisEnabled() || cfg.Redis().Addr != "127.0.0.1:6379" {
		t.Errorf("redis = %+v", cfg.Redis())
	}
	if cfg.SendQueueSize != 256 {
		t.Errorf("SendQueueSize = %d", cfg.SendQueueSize)
	}
}

func TestLoadFromRejectsBadDuration(t *testing.T) {
	if _, err := LoadFrom(map[string]string{"JWT_EXPIRES_IN": "7d"}); err == nil {
		t.Fatal("expected parse error")
	}
}

package global

import (
	"strings"
	"time"

	"HoodChat/data/database/mgo/mongoutil"
	"HoodChat/service/kafka"
	"HoodChat/service/natsx"
	"HoodChat/service/storage/redis"
	"HoodChat/tools/errs"
	"HoodChat/tools/security"

	"github.com/caarlos0/env/v11"
)

// AppConfig is the whole process configuration. Redis, NATS and Kafka stay
// disabled while their address lists are empty.
type AppConfig struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":3001"`
	GRPCAddr  string `env:"GRPC_ADDR" envDefault:":50052"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	ClientURL string `env:"CLIENT_URL" envDefault:"http://localhost:5173"`
	NodeID    int64  `env:"NODE_ID" envDefault:"1"`

	MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017/hoodhelp"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"hoodhelp"`
	MongoPoolSize int    `env:"MONGODB_POOL_SIZE" envDefault:"20"`

	JWTSecret    string        `env:"JWT_SECRET" envDefault:"fallback-secret"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"168h"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	PresenceTTL   time.Duration `env:"PRESENCE_TTL" envDefault:"2m"`

	NatsServers  []string `env:"NATS_SERVERS" envSeparator:","`
	NatsName     string   `env:"NATS_NAME" envDefault:"hoodchat-gateway"`
	NatsUser     string   `env:"NATS_USER"`
	NatsPassword string   `env:"NATS_PASSWORD"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"chat.events"`

	SendQueueSize int           `env:"WS_SEND_QUEUE" envDefault:"256"`
	FanoutWorkers int           `env:"WS_FANOUT_WORKERS" envDefault:"4"`
	VerifyDelay   time.Duration `env:"WS_VERIFY_DELAY" envDefault:"1s"`
}

// Load reads the configuration from the process environment.
func Load() (AppConfig, error) {
	return LoadFrom(nil)
}

// LoadFrom reads the configuration from environment, or from the process
// environment when environment is nil.
func LoadFrom(environment map[string]string) (AppConfig, error) {
	opts := env.Options{}
	if environment != nil {
		opts.Environment = environment
	}
	cfg, err := env.ParseAsWithOptions[AppConfig](opts)
	if err != nil {
		return AppConfig{}, errs.WrapMsg(err, "parse env")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return AppConfig{}, errs.ErrArgs.WrapMsg("JWT_SECRET is empty")
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 256
	}
	if cfg.FanoutWorkers <= 0 {
		cfg.FanoutWorkers = 1
	}
	return cfg, nil
}

func (c AppConfig) JWTOptions() security.Options {
	opts := security.DefaultOptions([]byte(c.JWTSecret))
	opts.TTL = c.JWTExpiresIn
	return opts
}

func (c AppConfig) Mongo() *mongoutil.Config {
	return &mongoutil.Config{
		Uri:         c.MongoURI,
		Database:    c.MongoDatabase,
		MaxPoolSize: c.MongoPoolSize,
	}
}

func (c AppConfig) RedisEnabled() bool { return c.RedisAddr != "" }

func (c AppConfig) Redis() redis.Config {
	return redis.Config{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

func (c AppConfig) NatsEnabled() bool { return len(c.NatsServers) > 0 }

func (c AppConfig) Nats() natsx.NatsxConfig {
	return natsx.NatsxConfig{
		Servers:  c.NatsServers,
		Name:     c.NatsName,
		User:     c.NatsUser,
		Password: c.NatsPassword,
	}
}

func (c AppConfig) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

func (c AppConfig) Kafka() kafka.AppConfig {
	cfg := kafka.DefaultConfig()
	cfg.Brokers = c.KafkaBrokers
	cfg.Topic = c.KafkaTopic
	return cfg
}

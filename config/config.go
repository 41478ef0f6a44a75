package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cwrk-planet/dealer-chat/internal/notify"
	"github.com/cwrk-planet/dealer-chat/internal/pubsub"
	"github.com/cwrk-planet/dealer-chat/internal/storage"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
	MaxFiles        int           `yaml:"maxFiles"`
}

type GRPC struct {
	Addr        string        `yaml:"addr"`
	HealthEvery time.Duration `yaml:"healthEvery"` // период пинга зависимостей
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // dealer-chat
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"maxConns"`
	MinConns        int32         `yaml:"minConns"`
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime"`
	SlowQuery       time.Duration `yaml:"slowQuery"`
}

type Persistence struct {
	Workers int `yaml:"workers"` // сколько обращений к хранилищу одновременно
}

type PubSub struct {
	Driver string             `yaml:"driver"` // memory|redis
	Redis  pubsub.RedisConfig `yaml:"redis"`
}

type Auth struct {
	PublicKeyPath string        `yaml:"publicKeyPath"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	ClockSkew     time.Duration `yaml:"clockSkew"`
}

type WebSocket struct {
	PingInterval   time.Duration `yaml:"pingInterval"`
	MaxMessageSize int64         `yaml:"maxMessageSize"`
	SendBuffer     int           `yaml:"sendBuffer"`
	HandlerTimeout time.Duration `yaml:"handlerTimeout"`
	MaxInFlight    int           `yaml:"maxInFlight"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
}

type Media struct {
	BaseURL string `yaml:"baseURL"`
}

type Storage struct {
	Driver string              `yaml:"driver"` // local|s3
	Local  storage.LocalConfig `yaml:"local"`
	S3     storage.S3Config    `yaml:"s3"`
}

type Push struct {
	Driver string             `yaml:"driver"` // noop|kafka
	Kafka  notify.KafkaConfig `yaml:"kafka"`
}

type Config struct {
	HTTP        HTTP        `yaml:"http"`
	GRPC        GRPC        `yaml:"grpc"`
	Logging     Logging     `yaml:"logging"`
	Postgres    Postgres    `yaml:"postgres"`
	Persistence Persistence `yaml:"persistence"`
	PubSub      PubSub      `yaml:"pubsub"`
	Auth        Auth        `yaml:"auth"`
	WebSocket   WebSocket   `yaml:"websocket"`
	Media       Media       `yaml:"media"`
	Storage     Storage     `yaml:"storage"`
	Push        Push        `yaml:"push"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	return Load(path)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// секреты можно не держать в файле
func (c *Config) applyEnv() {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.PubSub.Redis.Password = v
	}
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Auth.PublicKeyPath == "" {
		return errors.New("auth.publicKeyPath is required")
	}
	// клиенту уходят абсолютные адреса вложений
	if c.Media.BaseURL == "" {
		return errors.New("media.baseURL is required")
	}

	switch c.PubSub.Driver {
	case "":
		c.PubSub.Driver = "memory"
	case "memory":
	case "redis":
		if c.PubSub.Redis.Address == "" {
			return errors.New("pubsub.redis.address is required")
		}
	default:
		return fmt.Errorf("pubsub.driver: unknown %q", c.PubSub.Driver)
	}

	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = "local"
		fallthrough
	case "local":
		if c.Storage.Local.BasePath == "" {
			c.Storage.Local.BasePath = "./media"
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required")
		}
	default:
		return fmt.Errorf("storage.driver: unknown %q", c.Storage.Driver)
	}

	switch c.Push.Driver {
	case "":
		c.Push.Driver = "noop"
	case "noop":
	case "kafka":
		if c.Push.Kafka.Brokers == "" || c.Push.Kafka.Topic == "" {
			return errors.New("push.kafka.brokers and push.kafka.topic are required")
		}
	default:
		return fmt.Errorf("push.driver: unknown %q", c.Push.Driver)
	}

	// установка дефолтов, если значения не указаны
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.GRPC.HealthEvery == 0 {
		c.GRPC.HealthEvery = 5 * time.Second
	}
	if c.Persistence.Workers <= 0 {
		c.Persistence.Workers = 16
	}
	if c.Auth.ClockSkew == 0 {
		c.Auth.ClockSkew = 30 * time.Second
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "dealer-chat"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}

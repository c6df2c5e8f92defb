package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type (
	Config struct {
		HTTP    HTTP
		Log     Log
		PG      PG
		S3      S3
		Kafka   Kafka
		Outbox  Outbox
		Visma   Visma
		Swagger Swagger
	}

	HTTP struct {
		Port           string `env:"HTTP_PORT,required"`
		UsePreforkMode bool   `env:"HTTP_USE_PREFORK_MODE" envDefault:"false"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL,required"`
	}

	PG struct {
		PoolMax int    `env:"PG_POOL_MAX,required"`
		URL     string `env:"PG_URL,required"`
	}

	S3 struct {
		Endpoint       string        `env:"S3_ENDPOINT,required"`
		AccessKey      string        `env:"S3_ACCESS_KEY,required"`
		SecretKey      string        `env:"S3_SECRET_KEY,required"`
		Bucket         string        `env:"S3_BUCKET,required"`
		CfgLoadTimeout time.Duration `env:"S3_LOAD_CFG_TIMEOUT" envDefault:"10s"`
	}

	Kafka struct {
		Brokers []string `env:"KAFKA_BROKERS,required"`
		Topic   string   `env:"KAFKA_TOPIC,required"`
	}

	Outbox struct {
		PollInterval    time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"10s"`
		TickTimeout     time.Duration `env:"OUTBOX_TICK_TIMEOUT" envDefault:"2m"`
		HandlerTimeout  time.Duration `env:"OUTBOX_HANDLER_TIMEOUT" envDefault:"15s"`
		ShutdownTimeout time.Duration `env:"OUTBOX_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		BatchSize       int           `env:"OUTBOX_BATCH_SIZE" envDefault:"10"`
		MaxRetries      int           `env:"OUTBOX_MAX_RETRIES" envDefault:"5"`
	}

	Visma struct {
		SubmitDelay time.Duration `env:"VISMA_SUBMIT_DELAY" envDefault:"200ms"`
	}

	Swagger struct {
		Enabled bool `env:"SWAGGER_ENABLED" envDefault:"false"`
	}
)

func New() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}

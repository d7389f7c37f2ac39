package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Backend struct {
		Type string `yaml:"type"` // "kafka" or "clickhouse"
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		ChatTopic    string   `yaml:"chat_topic"`
		MarketTopic  string   `yaml:"market_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Chat struct {
		Token           string        `yaml:"token"`
		Nickname        string        `yaml:"nickname"`
		Channel         string        `yaml:"channel"`
		WebSocketURL    string        `yaml:"websocket_url"`
		IdleTimeout     time.Duration `yaml:"idle_timeout"`
		ConnectAttempts int           `yaml:"connect_attempts"`
		ReconnectDelay  time.Duration `yaml:"reconnect_delay"`
		RetryForever    bool          `yaml:"retry_forever"`
	} `yaml:"chat"`
	Market struct {
		Symbol          string        `yaml:"symbol"`
		WebSocketURL    string        `yaml:"websocket_url"`
		PingInterval    time.Duration `yaml:"ping_interval"`
		ConnectAttempts int           `yaml:"connect_attempts"`
		ReconnectDelay  time.Duration `yaml:"reconnect_delay"`
	} `yaml:"market"`
	Toxicity struct {
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout"`
		CacheTTL   time.Duration `yaml:"cache_ttl"`
		Redis      struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"toxicity"`
	Detectors struct {
		Chat struct {
			TimeWindowSeconds float64 `yaml:"time_window_seconds"`
			ToxicityThreshold float64 `yaml:"toxicity_threshold"`
			FreqThreshold     int     `yaml:"freq_threshold"`
			MaxAuthors        int     `yaml:"max_authors"`
		} `yaml:"chat"`
		Market struct {
			WindowSize      int     `yaml:"window_size"`
			ZScoreThreshold float64 `yaml:"z_score_threshold"`
		} `yaml:"market"`
	} `yaml:"detectors"`
	Alerts struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"alerts"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CHAT_TOKEN"); v != "" {
		c.Chat.Token = v
	}
	if v := os.Getenv("CHAT_NICKNAME"); v != "" {
		c.Chat.Nickname = v
	}
	if v := os.Getenv("CHAT_CHANNEL"); v != "" {
		c.Chat.Channel = v
	}
	if v := os.Getenv("MARKET_SYMBOL"); v != "" {
		c.Market.Symbol = v
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CHAT_KAFKA_TOPIC"); v != "" {
		c.Kafka.ChatTopic = v
	}
	if v := os.Getenv("MARKET_KAFKA_TOPIC"); v != "" {
		c.Kafka.MarketTopic = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.Backend.Type == "kafka" {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty")
		}
		if c.Kafka.ChatTopic == "" || c.Kafka.MarketTopic == "" {
			return fmt.Errorf("kafka.chat_topic and kafka.market_topic are required")
		}
	}
	if c.Market.Symbol == "" {
		return fmt.Errorf("market.symbol is required")
	}
	if c.Chat.Channel == "" {
		return fmt.Errorf("chat.channel is required")
	}
	return nil
}

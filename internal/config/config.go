package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Routing        RoutingConfig
	Evidence       EvidenceConfig
	Processing     ProcessingConfig
	Management     ManagementConfig
	CircuitBreaker CircuitBreakerConfig
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig
	Redis         RedisConfig
	MongoDB       MongoDBConfig
	RunMigrations bool `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers           []string    `mapstructure:"brokers"`
	GroupID           string      `mapstructure:"group_id"`
	BackendSubmission string      `mapstructure:"backend_submission_topic"`
	GatewayInbound    string      `mapstructure:"gateway_inbound_topic"`
	GatewayOutbound   string      `mapstructure:"gateway_outbound_topic"`
	BackendPrefix     string      `mapstructure:"backend_topic_prefix"`
	ConfigUpdateTopic string      `mapstructure:"config_update_topic"`
	DLQTopic          string      `mapstructure:"dlq_topic"`
	Retry             RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RoutingConfig struct {
	Reload       ReloadConfig       `mapstructure:"reload"`
	DefaultLink  string             `mapstructure:"default_link"`
	DefaultLinks map[string]string  `mapstructure:"default_links"`
	StaticRules  []StaticRuleConfig `mapstructure:"static_rules"`
}

// StaticRuleConfig defines an environment routing rule that exists without
// any database entry. Static rules keep routing alive when the rule store is
// unreachable.
type StaticRuleConfig struct {
	DomainID    string `mapstructure:"domain_id"`
	RuleID      string `mapstructure:"rule_id"`
	Description string `mapstructure:"description"`
	MatchClause string `mapstructure:"match_clause"`
	LinkName    string `mapstructure:"link_name"`
	Priority    int    `mapstructure:"priority"`
}

type ReloadConfig struct {
	IntervalSeconds       int `mapstructure:"interval_seconds"`
	JitterMaxMilliseconds int `mapstructure:"jitter_max_milliseconds"`
}

type EvidenceConfig struct {
	Timeouts TimeoutConfig            `mapstructure:"timeouts"`
	Domains  map[string]TimeoutConfig `mapstructure:"domains"`
}

// TimeoutConfig drives the evidence timeout scanner. Warn thresholds only
// log; the hard timeouts reject the message. A zero timeout disables the
// corresponding check.
type TimeoutConfig struct {
	CheckIntervalSeconds int           `mapstructure:"check_interval_seconds"`
	RelayTimeout         time.Duration `mapstructure:"relay_timeout"`
	RelayWarnTimeout     time.Duration `mapstructure:"relay_warn_timeout"`
	DeliveryTimeout      time.Duration `mapstructure:"delivery_timeout"`
	DeliveryWarnTimeout  time.Duration `mapstructure:"delivery_warn_timeout"`
	RetrievalTimeout     time.Duration `mapstructure:"retrieval_timeout"`
}

// ForDomain returns the domain's timeout overrides, falling back to the
// global defaults field by field.
func (c EvidenceConfig) ForDomain(domainID string) TimeoutConfig {
	out := c.Timeouts
	override, ok := c.Domains[domainID]
	if !ok {
		return out
	}
	if override.CheckIntervalSeconds > 0 {
		out.CheckIntervalSeconds = override.CheckIntervalSeconds
	}
	if override.RelayTimeout > 0 {
		out.RelayTimeout = override.RelayTimeout
	}
	if override.RelayWarnTimeout > 0 {
		out.RelayWarnTimeout = override.RelayWarnTimeout
	}
	if override.DeliveryTimeout > 0 {
		out.DeliveryTimeout = override.DeliveryTimeout
	}
	if override.DeliveryWarnTimeout > 0 {
		out.DeliveryWarnTimeout = override.DeliveryWarnTimeout
	}
	if override.RetrievalTimeout > 0 {
		out.RetrievalTimeout = override.RetrievalTimeout
	}
	return out
}

type ProcessingConfig struct {
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
}

// IdempotencyConfig controls the redis guard against redelivered envelopes.
// Fallback decides what happens when redis is unavailable: "allow" processes
// the message anyway, "deny" fails it into the retry path.
type IdempotencyConfig struct {
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	Fallback   string `mapstructure:"fallback"`
}

type ManagementConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}

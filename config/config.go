package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"

	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/priority"
)

// ErrInvalidThreshold is returned when a resolver threshold is outside (0, 1]
var ErrInvalidThreshold = errors.New("resolver thresholds must be in (0, 1]")

type Config struct {
	AppName    string `env:"APP_NAME" env-default:"fern"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs bool   `env:"PRETTY_LOGS" env-default:"false"`

	// PostgreSQL (entity store)
	DatabaseDriver              string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                string        `env:"DB_HOST" env-default:""`
	DatabasePort                string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"fern"`
	DatabaseSSLMode             string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion    int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce      int           `env:"DB_MIGRATION_FORCE" env-default:"0"`

	// Blob storage
	StorageRootPath string `env:"STORAGE_ROOT_PATH" env-default:"data/blobs"`

	// Kafka Producer (intake events)
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"intake-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Resolver thresholds
	ResolverFuzzyThreshold    float64 `env:"RESOLVER_FUZZY_THRESHOLD" env-default:"0.90"`
	ResolverCombinedThreshold float64 `env:"RESOLVER_COMBINED_THRESHOLD" env-default:"0.80"`
	ResolverNameThreshold     float64 `env:"RESOLVER_NAME_THRESHOLD" env-default:"0.80"`
	ResolverAddressThreshold  float64 `env:"RESOLVER_ADDRESS_THRESHOLD" env-default:"0.70"`
	ResolverRecallThreshold   float64 `env:"RESOLVER_RECALL_THRESHOLD" env-default:"0.30"`
	ResolverMaxCandidates     int     `env:"RESOLVER_MAX_CANDIDATES" env-default:"25"`

	// Priority factor weights, must sum to 1.0
	PriorityTimeWeight       float64 `env:"PRIORITY_TIME_WEIGHT" env-default:"0.30"`
	PrioritySeverityWeight   float64 `env:"PRIORITY_SEVERITY_WEIGHT" env-default:"0.25"`
	PriorityAmountWeight     float64 `env:"PRIORITY_AMOUNT_WEIGHT" env-default:"0.15"`
	PriorityEffortWeight     float64 `env:"PRIORITY_EFFORT_WEIGHT" env-default:"0.15"`
	PriorityDependencyWeight float64 `env:"PRIORITY_DEPENDENCY_WEIGHT" env-default:"0.10"`
	PriorityBoostWeight      float64 `env:"PRIORITY_BOOST_WEIGHT" env-default:"0.05"`
}

// Load reads the environment (and any .env file) into a Config and validates
// it. Broken weight or threshold configuration fails here, at process start.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks weights and thresholds
func (c *Config) Validate() error {
	if err := c.PriorityWeights().Validate(); err != nil {
		return err
	}

	thresholds := []float64{
		c.ResolverFuzzyThreshold,
		c.ResolverCombinedThreshold,
		c.ResolverNameThreshold,
		c.ResolverAddressThreshold,
		c.ResolverRecallThreshold,
	}
	for _, t := range thresholds {
		if t <= 0 || t > 1 {
			return fmt.Errorf("%w: got %.2f", ErrInvalidThreshold, t)
		}
	}
	return nil
}

// DatabaseURL builds the Postgres connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DatabaseUserName, c.DatabasePassword, c.DatabaseHost, c.DatabasePort, c.DatabaseName, c.DatabaseSSLMode)
}

// PriorityWeights maps the config onto the calculator weight table
func (c *Config) PriorityWeights() priority.Weights {
	return priority.Weights{
		TimePressure:   c.PriorityTimeWeight,
		Severity:       c.PrioritySeverityWeight,
		Amount:         c.PriorityAmountWeight,
		Effort:         c.PriorityEffortWeight,
		Dependency:     c.PriorityDependencyWeight,
		UserPreference: c.PriorityBoostWeight,
	}
}

// ResolverConfig maps the config onto the resolver thresholds
func (c *Config) ResolverConfig() matching.Config {
	return matching.Config{
		FuzzyThreshold:      c.ResolverFuzzyThreshold,
		CombinedThreshold:   c.ResolverCombinedThreshold,
		NameSubThreshold:    c.ResolverNameThreshold,
		AddressSubThreshold: c.ResolverAddressThreshold,
		RecallThreshold:     c.ResolverRecallThreshold,
		MaxCandidates:       c.ResolverMaxCandidates,
	}
}

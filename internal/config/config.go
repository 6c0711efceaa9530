package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// MERRA-2 grid source.
	DataDir       string
	FilePrefix    string
	Variable      string
	GridEpsilon   float64
	GridCacheSize int

	// Profile store; disabled when StorePath is empty.
	StorePath      string
	StoreRetention time.Duration

	// On-demand sampling endpoint.
	SampleRateLimit float64
	SampleRateBurst int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	epsilon, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GRID_EPSILON", "1e-12"), 64)
	if err != nil || epsilon <= 0 {
		return nil, errors.New("invalid GRID_EPSILON")
	}

	retention, err := time.ParseDuration(sharedcfg.EnvOrDefault("STORE_RETENTION", "720h"))
	if err != nil || retention < 0 {
		return nil, errors.New("invalid STORE_RETENTION")
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("SAMPLE_RATE_LIMIT", "5"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid SAMPLE_RATE_LIMIT")
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "merra2-extract-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "merra2-profiles"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "merra2-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		DataDir:       sharedcfg.EnvOrDefault("MERRA2_DATA_DIR", "./data/merra2"),
		FilePrefix:    sharedcfg.EnvOrDefault("MERRA2_FILE_PREFIX", "MERRA2_400.tavg1_2d_slv_Nx."),
		Variable:      sharedcfg.EnvOrDefault("MERRA2_VARIABLE", "T2M"),
		GridEpsilon:   epsilon,
		GridCacheSize: parsePositiveInt("GRID_CACHE_SIZE", 8),

		StorePath:      os.Getenv("STORE_PATH"),
		StoreRetention: retention,

		SampleRateLimit: rateLimit,
		SampleRateBurst: parsePositiveInt("SAMPLE_RATE_BURST", 10),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.DataDir == "" {
		return nil, errors.New("MERRA2_DATA_DIR is required")
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

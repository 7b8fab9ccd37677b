package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	awspkg "github.com/yashrajoria/distributor-backend/pkg/aws"
)

// Config holds all configuration for the distributor-service.
type Config struct {
	Port   string // Service port (default: 8085)
	AppEnv string // "production" hides error causes and sets secure cookies

	MongoURI          string
	MongoDB           string
	MongoTransactions string // auto, true or false

	JWTSecret     string
	SessionTTL    time.Duration
	AdminUsername string
	AdminPassword string

	AllowedOrigins     string
	RateLimitPerMinute int
	RateLimitBurst     int

	OnlineThreshold        time.Duration
	InventoryUpsertUnknown bool
	BillingMaxShipments    int

	RedisURL            string
	KafkaBrokers        []string
	KafkaShipmentsTopic string
	ShipmentsTopicArn   string
	RestockQueueURL     string

	PresenceStore     string // mongo or dynamodb
	DDBPresenceTable  string
	OTLPEndpoint      string
	CloudWatchEnabled bool
	CloudWatchNS      string
	CloudWatchLogs    string
}

// adminSecret is the JSON shape of distributor/ADMIN_CREDENTIALS.
type adminSecret struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// LoadConfig loads an optional .env file, then environment variables, then
// Secrets Manager overrides, and refuses to start without the required keys.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8085"),
		AppEnv:              getEnv("APP_ENV", "development"),
		MongoURI:            os.Getenv("MONGO_URI"),
		MongoDB:             getEnv("MONGO_DB", "distributor"),
		MongoTransactions:   strings.ToLower(getEnv("MONGO_TRANSACTIONS", "auto")),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		AdminUsername:       os.Getenv("ADMIN_USERNAME"),
		AdminPassword:       os.Getenv("ADMIN_PASSWORD"),
		AllowedOrigins:      os.Getenv("ALLOWED_ORIGINS"),
		RedisURL:            os.Getenv("REDIS_URL"),
		KafkaShipmentsTopic: getEnv("KAFKA_TOPIC_SHIPMENTS", "shipments.events"),
		ShipmentsTopicArn:   os.Getenv("SHIPMENTS_SNS_TOPIC_ARN"),
		RestockQueueURL:     os.Getenv("RESTOCK_QUEUE_URL"),
		PresenceStore:       strings.ToLower(getEnv("PRESENCE_STORE", "mongo")),
		DDBPresenceTable:    getEnv("DDB_TABLE_PRESENCE", "UserSessions"),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CloudWatchNS:        getEnv("CLOUDWATCH_NAMESPACE", "Distributor"),
		CloudWatchLogs:      getEnv("CLOUDWATCH_LOG_GROUP", "/distributor/services"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.OnlineThreshold, err = getDuration("ONLINE_THRESHOLD", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 100); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 50); err != nil {
		return nil, err
	}
	if cfg.BillingMaxShipments, err = getInt("BILLING_MAX_SHIPMENTS", 20000); err != nil {
		return nil, err
	}
	if cfg.InventoryUpsertUnknown, err = getBool("INVENTORY_UPSERT_UNKNOWN", false); err != nil {
		return nil, err
	}
	if cfg.CloudWatchEnabled, err = getBool("CLOUDWATCH_ENABLED", false); err != nil {
		return nil, err
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		loadSecrets(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSecrets overrides credentials from Secrets Manager. Missing secrets
// keep the environment values.
func loadSecrets(cfg *Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		return
	}
	sm := awspkg.NewSecretsClient(awsCfg)

	if jwt, err := sm.GetSecret(ctx, "distributor/JWT_SECRET"); err == nil && jwt != "" {
		cfg.JWTSecret = jwt
	}
	if uri, err := sm.GetSecret(ctx, "distributor/MONGO_URI"); err == nil && uri != "" {
		cfg.MongoURI = uri
	}
	var admin adminSecret
	if err := sm.GetJSONSecret(ctx, "distributor/ADMIN_CREDENTIALS", &admin); err == nil && admin.Username != "" {
		cfg.AdminUsername = admin.Username
		cfg.AdminPassword = admin.Password
	}
}

func (c *Config) validate() error {
	var missing []string
	for key, val := range map[string]string{
		"MONGO_URI":      c.MongoURI,
		"JWT_SECRET":     c.JWTSecret,
		"ADMIN_USERNAME": c.AdminUsername,
		"ADMIN_PASSWORD": c.AdminPassword,
	} {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.AllowedOrigins == "" {
		if c.IsProduction() {
			return fmt.Errorf("ALLOWED_ORIGINS is required in production")
		}
		c.AllowedOrigins = "http://localhost:3000"
	}

	switch c.MongoTransactions {
	case "auto", "true", "false":
	default:
		return fmt.Errorf("MONGO_TRANSACTIONS must be auto, true or false")
	}
	switch c.PresenceStore {
	case "mongo", "dynamodb":
	default:
		return fmt.Errorf("PRESENCE_STORE must be mongo or dynamodb")
	}
	if c.OnlineThreshold <= 0 {
		return fmt.Errorf("ONLINE_THRESHOLD must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getBool(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return v, nil
}

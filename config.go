package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	awspkg "github.com/shivamdarekar/TrendsWave/pkg/aws"
)

// Config holds every environment setting the server reads.
type Config struct {
	Port        string
	Env         string
	FrontendURL string

	MongoURI string
	MongoDB  string
	RedisURL string

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	PaymentProvider      string
	PaymentCurrency      string
	RazorpayKeyID        string
	RazorpayKeySecret    string
	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string

	StorageBackend  string
	S3Bucket        string
	S3PathStyle     bool
	StorageBaseURL  string
	MinIOEndpoint   string
	MinIOAccessKey  string
	MinIOSecretKey  string
	MinIOBucket     string
	MinIOUseSSL     bool
	MaxUploadBytes  int64
	CleanupSchedule string

	TempUploadBackend   string
	TempUploadTable     string
	StorageDeleteQueue  string
	OrderEventsTopicArn string
	KafkaBrokers        []string
	KafkaOrderTopic     string

	ProductCacheTTL time.Duration
	IdempotencyTTL  time.Duration

	AWSRegion          string
	AWSEndpoint        string
	AWSUseSecrets      bool
	AWSSecretName      string
	CloudWatchMetrics  bool
	MetricsNamespace   string
	CloudWatchLogs     bool
	CloudWatchLogGroup string
}

// IsProduction reports whether cookies and headers should use production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AWSOptions is the shared SDK config for every AWS client.
func (c *Config) AWSOptions() awspkg.Options {
	return awspkg.Options{Region: c.AWSRegion, Endpoint: c.AWSEndpoint}
}

// needsAWS reports whether any configured backend talks to AWS.
func (c *Config) needsAWS() bool {
	return c.AWSUseSecrets || c.StorageBackend == "s3" || c.TempUploadBackend == "dynamodb" ||
		c.StorageDeleteQueue != "" || c.OrderEventsTopicArn != "" || c.CloudWatchMetrics || c.CloudWatchLogs
}

// LoadConfig reads .env (if present) and the environment, then validates.
// With AWS_USE_SECRETS=true the JSON secret AWS_SECRET_NAME overrides the
// secret values; a lookup failure keeps the environment values.
func LoadConfig(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "9000"),
		Env:         getEnv("APP_ENV", getEnv("NODE_ENV", "development")),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		MongoURI: getEnv("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDB:  getEnv("MONGODB_DB", "trendswave"),
		RedisURL: os.Getenv("REDIS_URL"),

		JWTAccessSecret:  getEnv("JWT_SECRET", ""),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
		AccessTokenTTL:   getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),

		PaymentProvider:      strings.ToLower(getEnv("PAYMENT_PROVIDER", "razorpay")),
		PaymentCurrency:      getEnv("PAYMENT_CURRENCY", "INR"),
		RazorpayKeyID:        os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:    os.Getenv("RAZORPAY_KEY_SECRET"),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripePublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),

		StorageBackend:  strings.ToLower(getEnv("STORAGE_BACKEND", "s3")),
		S3Bucket:        getEnv("AWS_S3_BUCKET", "trendswave"),
		S3PathStyle:     getBool("AWS_S3_PATH_STYLE", false),
		StorageBaseURL:  os.Getenv("STORAGE_PUBLIC_BASE_URL"),
		MinIOEndpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:  os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:     getEnv("MINIO_BUCKET", "trendswave"),
		MinIOUseSSL:     getBool("MINIO_USE_SSL", false),
		MaxUploadBytes:  getInt64("MAX_UPLOAD_BYTES", 10<<20),
		CleanupSchedule: getEnv("CLEANUP_CRON", "0 3 * * *"),

		TempUploadBackend:   strings.ToLower(getEnv("TEMP_UPLOAD_BACKEND", "mongo")),
		TempUploadTable:     getEnv("DDB_TABLE_TEMP_UPLOADS", "TempUploads"),
		StorageDeleteQueue:  os.Getenv("STORAGE_DELETE_QUEUE_URL"),
		OrderEventsTopicArn: os.Getenv("ORDER_EVENTS_TOPIC_ARN"),
		KafkaBrokers:        splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic:     getEnv("KAFKA_ORDER_TOPIC", "orders"),

		ProductCacheTTL: getDuration("PRODUCT_CACHE_TTL", 10*time.Minute),
		IdempotencyTTL:  getDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSEndpoint:        os.Getenv("AWS_ENDPOINT"),
		AWSUseSecrets:      getBool("AWS_USE_SECRETS", false),
		AWSSecretName:      getEnv("AWS_SECRET_NAME", "trendswave/backend"),
		CloudWatchMetrics:  getBool("CLOUDWATCH_METRICS_ENABLED", false),
		MetricsNamespace:   getEnv("CLOUDWATCH_NAMESPACE", "TrendsWave"),
		CloudWatchLogs:     getBool("CLOUDWATCH_LOGS_ENABLED", false),
		CloudWatchLogGroup: getEnv("CLOUDWATCH_LOG_GROUP", "/trendswave/backend"),
	}

	if cfg.AWSUseSecrets {
		if awsCfg, err := awspkg.LoadAWSConfig(ctx, cfg.AWSOptions()); err == nil {
			if secrets, err := awspkg.NewSecretsClient(awsCfg).GetSecretMap(ctx, cfg.AWSSecretName); err == nil {
				cfg.applySecrets(secrets)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySecrets overrides secret values with non-empty entries from a secret map.
func (c *Config) applySecrets(secrets map[string]string) {
	targets := map[string]*string{
		"MONGODB_URI":           &c.MongoURI,
		"JWT_SECRET":            &c.JWTAccessSecret,
		"JWT_REFRESH_SECRET":    &c.JWTRefreshSecret,
		"GOOGLE_CLIENT_SECRET":  &c.GoogleClientSecret,
		"RAZORPAY_KEY_SECRET":   &c.RazorpayKeySecret,
		"STRIPE_SECRET_KEY":     &c.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": &c.StripeWebhookSecret,
		"MINIO_SECRET_KEY":      &c.MinIOSecretKey,
	}
	for key, dst := range targets {
		if v := secrets[key]; v != "" {
			*dst = v
		}
	}
}

// Validate checks required values and backend choices.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTRefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return fmt.Errorf("JWT_REFRESH_SECRET must differ from JWT_SECRET")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}

	switch c.PaymentProvider {
	case "razorpay":
		if c.RazorpayKeyID == "" || c.RazorpayKeySecret == "" {
			return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
		}
	case "stripe":
		if c.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required")
		}
	default:
		return fmt.Errorf("unsupported PAYMENT_PROVIDER %q", c.PaymentProvider)
	}

	switch c.StorageBackend {
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required")
		}
	case "minio":
		if c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
			return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.TempUploadBackend {
	case "mongo", "dynamodb":
	default:
		return fmt.Errorf("unsupported TEMP_UPLOAD_BACKEND %q", c.TempUploadBackend)
	}

	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return v
}

func getInt64(key string, defaultVal int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return defaultVal
	}
	return v
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return v
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

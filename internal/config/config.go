package config

import (
	"os"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	// SNS topic the realtime websocket edge subscribes to.
	SNSRegion        string
	RealtimeTopicARN string

	ExpoPushURL     string
	ExpoPushTimeout time.Duration

	AuthServiceURL     string
	AuthServiceTimeout time.Duration

	JWTPublicKeyPath string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SchedulerInterval time.Duration

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Notifications        string
	DeviceTokens         string
	NotificationSettings string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Notifications:        getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
			DeviceTokens:         getEnv("DYNAMO_TABLE_DEVICE_TOKENS", "device_tokens"),
			NotificationSettings: getEnv("DYNAMO_TABLE_NOTIFICATION_SETTINGS", "notification_settings"),
		},

		SNSRegion:        getEnv("SNS_REGION", "us-east-1"),
		RealtimeTopicARN: getEnv("SNS_REALTIME_TOPIC_ARN", ""),

		ExpoPushURL:     getEnv("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),
		ExpoPushTimeout: getEnvDuration("EXPO_PUSH_TIMEOUT", 10*time.Second),

		AuthServiceURL:     getEnv("AUTH_SERVICE_URL", "http://fitnease-auth"),
		AuthServiceTimeout: getEnvDuration("AUTH_SERVICE_TIMEOUT", 5*time.Second),

		JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@fitnease.app"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SchedulerInterval: getEnvDuration("SCHEDULER_INTERVAL", time.Minute),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

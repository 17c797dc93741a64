package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppName string
	AppEnv  string
	AppPort int

	LogLevel string

	// MongoDB (required for the store-backed handlers).
	MongoURI string
	MongoDB  string

	// Ordered legacy locations probed for analyzed reports, primary first.
	ReportCollections []string

	// Redis (optional; enabled only when RedisHost is set).
	RedisUser     string
	RedisPassword string
	RedisHost     string
	RedisPort     int
	RedisScheme   string

	// RabbitMQ (optional; enabled only when AMQPURL is set).
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// External scrape workflow webhook.
	ScrapeWebhookURL  string
	ScrapeSyncTimeout time.Duration
	ScrapeFireTimeout time.Duration
	ScrapePollEvery   time.Duration
	ScrapePollTries   int

	// External analytics workflow webhook + callback.
	AnalyticsWebhookURL    string
	AnalyticsCallbackURL   string
	AnalyticsSecret        string
	AnalyticsPendingWindow time.Duration

	// Short-link resolution (one domain plus its subdomains).
	ShortlinkHost    string
	ShortlinkTimeout time.Duration

	// In-flight scrape marker TTL (redis-backed when redis is enabled).
	InflightTTL time.Duration
}

func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("APP_NAME", "pricetrail")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("MONGO_DB", "pricetrail")
	v.SetDefault("REPORT_COLLECTIONS", "analyzed_reports,Analyzed_Reports,analyzedreports,products_analysis")

	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_SCHEME", "redis")

	v.SetDefault("AMQP_EXCHANGE", "events")
	v.SetDefault("AMQP_ROUTING_KEY", "product.scraped.v1")

	v.SetDefault("SCRAPE_SYNC_TIMEOUT", "300s")
	v.SetDefault("SCRAPE_FIRE_TIMEOUT", "8s")
	v.SetDefault("SCRAPE_POLL_INTERVAL", "1s")
	v.SetDefault("SCRAPE_POLL_ATTEMPTS", 12)

	v.SetDefault("ANALYTICS_PENDING_WINDOW", "10m")

	v.SetDefault("SHORTLINK_HOST", "amzn.to")
	v.SetDefault("SHORTLINK_TIMEOUT", "3s")

	v.SetDefault("INFLIGHT_TTL", "30s")

	return v
}

func NewConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppName: v.GetString("APP_NAME"),
		AppEnv:  v.GetString("APP_ENV"),
		AppPort: v.GetInt("APP_PORT"),

		LogLevel: v.GetString("LOG_LEVEL"),

		MongoURI: v.GetString("MONGO_URI"),
		MongoDB:  v.GetString("MONGO_DB"),

		ReportCollections: splitCSV(v.GetString("REPORT_COLLECTIONS")),

		RedisUser:     v.GetString("REDIS_USER"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisHost:     v.GetString("REDIS_HOST"),
		RedisPort:     v.GetInt("REDIS_PORT"),
		RedisScheme:   v.GetString("REDIS_SCHEME"),

		AMQPURL:        v.GetString("AMQP_URL"),
		AMQPExchange:   v.GetString("AMQP_EXCHANGE"),
		AMQPRoutingKey: v.GetString("AMQP_ROUTING_KEY"),

		ScrapeWebhookURL:  v.GetString("SCRAPE_WEBHOOK_URL"),
		ScrapeSyncTimeout: v.GetDuration("SCRAPE_SYNC_TIMEOUT"),
		ScrapeFireTimeout: v.GetDuration("SCRAPE_FIRE_TIMEOUT"),
		ScrapePollEvery:   v.GetDuration("SCRAPE_POLL_INTERVAL"),
		ScrapePollTries:   v.GetInt("SCRAPE_POLL_ATTEMPTS"),

		AnalyticsWebhookURL:    v.GetString("ANALYTICS_WEBHOOK_URL"),
		AnalyticsCallbackURL:   v.GetString("ANALYTICS_CALLBACK_URL"),
		AnalyticsSecret:        v.GetString("ANALYTICS_CALLBACK_SECRET"),
		AnalyticsPendingWindow: v.GetDuration("ANALYTICS_PENDING_WINDOW"),

		ShortlinkHost:    v.GetString("SHORTLINK_HOST"),
		ShortlinkTimeout: v.GetDuration("SHORTLINK_TIMEOUT"),

		InflightTTL: v.GetDuration("INFLIGHT_TTL"),
	}

	if cfg.AppPort <= 0 || cfg.AppPort > 65535 {
		return Config{}, fmt.Errorf("invalid APP_PORT %d", cfg.AppPort)
	}
	if cfg.RedisPort <= 0 || cfg.RedisPort > 65535 {
		return Config{}, fmt.Errorf("invalid REDIS_PORT %d", cfg.RedisPort)
	}
	if len(cfg.ReportCollections) == 0 {
		return Config{}, fmt.Errorf("REPORT_COLLECTIONS must name at least one collection")
	}
	if cfg.ScrapePollTries <= 0 {
		return Config{}, fmt.Errorf("invalid SCRAPE_POLL_ATTEMPTS %d", cfg.ScrapePollTries)
	}
	if cfg.ScrapeSyncTimeout <= 0 || cfg.ScrapeFireTimeout <= 0 || cfg.ShortlinkTimeout <= 0 {
		return Config{}, fmt.Errorf("webhook timeouts must be positive")
	}

	return cfg, nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type EnvConfig struct {
	Postgres struct {
		HOST     string
		Database string
		Username string
		Password string
		Port     string
	}
	Mongo struct {
		URI                string
		Database           string
		ActivityCollection string
	}
	JWT struct {
		SecretKey string
		Algorithm string
	}
	CORS struct {
		AllowDomains string
	}
	Redis struct {
		Password  string
		Database  int
		RedisHost string
		RedisPort string
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	S3 struct {
		AccessKeyID     string
		SecretAccessKey string
		Region          string
		Bucket          string
		Endpoint        string
		PublicBaseURL   string
	}
	Minio struct {
		Endpoint     string
		RootUser     string
		RootPassword string
		Bucket       string
		UseSSL       bool
	}
	LocalStorage struct {
		Root       string
		BaseURL    string
		SigningKey string
	}
	Webhook struct {
		Secret       string
		Destinations []string
	}
	SignedURLTTL time.Duration
	ExternalService struct {
		AuthorizationServiceURL string
	}
	Grafana struct {
		OTLPEndpoint string
		ServiceName  string
	}
	PrivateKey string

	Environment struct {
		Mode string
	}
	HTTPPort string
}

// HasS3Credentials reports whether the cloud object store is fully configured.
func (c *EnvConfig) HasS3Credentials() bool {
	return c.S3.AccessKeyID != "" && c.S3.SecretAccessKey != "" && c.S3.Bucket != ""
}

func (c *EnvConfig) HasMinioCredentials() bool {
	return c.Minio.Endpoint != "" && c.Minio.RootUser != "" && c.Minio.RootPassword != ""
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Postgres
	config.Postgres.HOST = os.Getenv("PGPOOL_HOST")
	config.Postgres.Database = os.Getenv("PGPOOL_DB")
	config.Postgres.Username = os.Getenv("PGPOOL_USER")
	config.Postgres.Password = os.Getenv("PGPOOL_PASSWORD")
	config.Postgres.Port = os.Getenv("PGPOOL_PORT")
	if config.Postgres.Port == "" {
		config.Postgres.Port = "5432"
	}

	// Mongo (activity log)
	config.Mongo.URI = os.Getenv("MONGO_URI")
	config.Mongo.Database = os.Getenv("MONGO_DB")
	if config.Mongo.Database == "" {
		config.Mongo.Database = "gau_assets"
	}
	config.Mongo.ActivityCollection = os.Getenv("MONGO_ACTIVITY_COLLECTION")
	if config.Mongo.ActivityCollection == "" {
		config.Mongo.ActivityCollection = "activity_logs"
	}

	// JWT
	config.JWT.SecretKey = os.Getenv("JWT_SECRET_KEY")
	config.JWT.Algorithm = os.Getenv("JWT_ALGORITHM")
	if config.JWT.Algorithm == "" {
		config.JWT.Algorithm = "HS256"
	}

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")

	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	config.Redis.RedisHost = os.Getenv("REDIS_HOST")
	config.Redis.RedisPort = os.Getenv("REDIS_PORT")
	if config.Redis.RedisPort == "" {
		config.Redis.RedisPort = "6379"
	}

	// RabbitMQ is optional; an empty host disables event fan-out and purge jobs
	config.RabbitMQ.Host = os.Getenv("RABBITMQ_HOST")
	config.RabbitMQ.Port = os.Getenv("RABBITMQ_PORT")
	if config.RabbitMQ.Port == "" {
		config.RabbitMQ.Port = "5672"
	}
	config.RabbitMQ.Username = os.Getenv("RABBITMQ_USER")
	if config.RabbitMQ.Username == "" {
		config.RabbitMQ.Username = "guest"
	}
	config.RabbitMQ.Password = os.Getenv("RABBITMQ_PASSWORD")
	if config.RabbitMQ.Password == "" {
		config.RabbitMQ.Password = "guest"
	}

	// Cloud object store
	config.S3.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	config.S3.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	config.S3.Region = os.Getenv("AWS_REGION")
	if config.S3.Region == "" {
		config.S3.Region = "us-east-1"
	}
	config.S3.Bucket = os.Getenv("S3_BUCKET")
	config.S3.Endpoint = os.Getenv("S3_ENDPOINT")
	config.S3.PublicBaseURL = strings.TrimSuffix(os.Getenv("S3_PUBLIC_BASE_URL"), "/")

	config.Minio.Endpoint = os.Getenv("MINIO_ENDPOINT")
	config.Minio.RootUser = os.Getenv("MINIO_ROOT_USER")
	config.Minio.RootPassword = os.Getenv("MINIO_ROOT_PASSWORD")
	config.Minio.Bucket = os.Getenv("MINIO_BUCKET")
	if config.Minio.Bucket == "" {
		config.Minio.Bucket = "assets"
	}
	config.Minio.UseSSL, _ = strconv.ParseBool(os.Getenv("MINIO_USE_SSL"))

	config.LocalStorage.Root = os.Getenv("LOCAL_STORAGE_ROOT")
	if config.LocalStorage.Root == "" {
		config.LocalStorage.Root = "./uploads"
	}
	config.LocalStorage.BaseURL = strings.TrimSuffix(os.Getenv("LOCAL_STORAGE_BASE_URL"), "/")
	if config.LocalStorage.BaseURL == "" {
		config.LocalStorage.BaseURL = "http://localhost:8080"
	}
	config.LocalStorage.SigningKey = os.Getenv("LOCAL_STORAGE_SIGNING_KEY")
	if config.LocalStorage.SigningKey == "" {
		config.LocalStorage.SigningKey = config.JWT.SecretKey
	}

	// Webhooks
	config.Webhook.Secret = os.Getenv("WEBHOOK_SECRET")
	config.Webhook.Destinations = splitList(os.Getenv("WEBHOOK_URLS"))

	config.SignedURLTTL = time.Hour
	if ttlStr := os.Getenv("SIGNED_URL_TTL"); ttlStr != "" {
		if ttl, err := strconv.Atoi(ttlStr); err == nil && ttl > 0 {
			config.SignedURLTTL = time.Duration(ttl) * time.Second
		}
	}

	config.PrivateKey = os.Getenv("PRIVATE_KEY")
	config.ExternalService.AuthorizationServiceURL = os.Getenv("AUTHORIZATION_SERVICE_URL")

	// Grafana/OpenTelemetry
	grafanaEndpoint := os.Getenv("GRAFANA_OTLP_ENDPOINT")
	// Remove protocol for OpenTelemetry client to avoid duplicate protocols
	if strings.HasPrefix(grafanaEndpoint, "https://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "https://")
	} else if strings.HasPrefix(grafanaEndpoint, "http://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "http://")
	} else {
		config.Grafana.OTLPEndpoint = grafanaEndpoint
	}
	config.Grafana.ServiceName = os.Getenv("SERVICE_NAME")
	if config.Grafana.ServiceName == "" {
		config.Grafana.ServiceName = "gau-asset-service"
	}

	config.Environment.Mode = os.Getenv("DEPLOY_ENV")
	if config.Environment.Mode == "" {
		config.Environment.Mode = "development"
	}

	config.HTTPPort = os.Getenv("HTTP_PORT")
	if config.HTTPPort == "" {
		config.HTTPPort = "8080"
	}

	return &config
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

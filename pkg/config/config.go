package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const ServiceName = "portal-service"

// Storage drivers
const (
	StorageSupabase = "supabase"
	StorageGCS      = "gcs"
	StorageS3       = "s3"
	// StorageMemory keeps objects in process memory, for local runs only
	StorageMemory = "memory"
)

// Config holds all configuration
type Config struct {
	ServiceName string
	Server      ServerConfig
	DB          DBConfig
	JWT         JWTConfig
	Log         LogConfig
	Metrics     MetricsConfig
	Storage     StorageConfig
	Supabase    SupabaseConfig
	GCS         GCSConfig
	S3          S3Config
	Firebase    FirebaseConfig
	Mail        MailConfig
	Shopify     ShopifyConfig
	Bedrock     BedrockConfig
	Alerts      AlertsConfig
	Catalog     CatalogConfig
	Invoice     InvoiceConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Env            string
	MaxUploadBytes int64
}

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

// DSN returns the PostgreSQL connection string
func (c *DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// JWTConfig holds JWT configuration for admin tokens
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// StorageConfig selects the object storage backend
type StorageConfig struct {
	Driver        string
	Bucket        string
	PublicBaseURL string
}

type SupabaseConfig struct {
	URL        string
	ServiceKey string
}

type GCSConfig struct {
	CredentialsFile string
}

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// MailConfig holds transactional email settings
type MailConfig struct {
	SendGridAPIKey string
	FromAddress    string
	FromName       string
	PortalURL      string
}

// ShopifyConfig holds Admin API settings
type ShopifyConfig struct {
	ShopDomain              string
	AccessToken             string
	APIVersion              string
	AdminMetafieldNamespace string
	AdminMetafieldKey       string
	AdminMetafieldValue     string
}

type BedrockConfig struct {
	Region  string
	ModelID string
}

// AlertsConfig sizes the background email dispatcher
type AlertsConfig struct {
	EmailWorkers int
	QueueSize    int
}

type CatalogConfig struct {
	CacheTTL time.Duration
}

// InvoiceConfig is the issuer block printed on generated invoices
type InvoiceConfig struct {
	IssuerName    string
	IssuerAddress string
	IssuerTaxID   string
}

// Load loads configuration from .env file and environment variables
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads the configuration without validating the storage backend.
// Tools that only need the database use it directly.
func FromEnv() *Config {
	// .env file is optional
	_ = godotenv.Load()

	return &Config{
		ServiceName: ServiceName,
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("APP_ENV", "development"),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 20<<20)),
		},
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "postgres"),
			SSLMode:         getEnv("DB_SSL_MODE", "require"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			LogLevel:        getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SIGNING_KEY", "defaultsecretkey"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "portal"),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(getEnv("STORAGE_DRIVER", StorageSupabase)),
			Bucket:        getEnv("STORAGE_BUCKET", "purchase-orders"),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", ""),
		},
		Supabase: SupabaseConfig{
			URL:        getEnv("SUPABASE_URL", ""),
			ServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		},
		GCS: GCSConfig{
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		S3: S3Config{
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvAsBool("S3_USE_PATH_STYLE", true),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		},
		Mail: MailConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromAddress:    getEnv("MAIL_FROM_ADDRESS", "no-reply@example.com"),
			FromName:       getEnv("MAIL_FROM_NAME", "Merchant Portal"),
			PortalURL:      getEnv("PORTAL_URL", ""),
		},
		Shopify: ShopifyConfig{
			ShopDomain:              getEnv("SHOPIFY_SHOP_DOMAIN", ""),
			AccessToken:             getEnv("SHOPIFY_ACCESS_TOKEN", ""),
			APIVersion:              getEnv("SHOPIFY_API_VERSION", "2024-10"),
			AdminMetafieldNamespace: getEnv("SHOPIFY_ADMIN_METAFIELD_NAMESPACE", "custom"),
			AdminMetafieldKey:       getEnv("SHOPIFY_ADMIN_METAFIELD_KEY", "role"),
			AdminMetafieldValue:     getEnv("SHOPIFY_ADMIN_METAFIELD_VALUE", "admin"),
		},
		Bedrock: BedrockConfig{
			Region:  getEnv("BEDROCK_REGION", "us-east-1"),
			ModelID: getEnv("BEDROCK_MODEL_ID", ""),
		},
		Alerts: AlertsConfig{
			EmailWorkers: getEnvAsInt("ALERT_EMAIL_WORKERS", 4),
			QueueSize:    getEnvAsInt("ALERT_EMAIL_QUEUE_SIZE", 256),
		},
		Catalog: CatalogConfig{
			CacheTTL: getEnvAsDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		},
		Invoice: InvoiceConfig{
			IssuerName:    getEnv("INVOICE_ISSUER_NAME", "Merchant Portal"),
			IssuerAddress: getEnv("INVOICE_ISSUER_ADDRESS", ""),
			IssuerTaxID:   getEnv("INVOICE_ISSUER_TAX_ID", ""),
		},
	}
}

// Validate checks that the selected storage backend has what it needs
func (c *Config) Validate() error {
	if c.Storage.Bucket == "" {
		return fmt.Errorf("STORAGE_BUCKET is required")
	}
	switch c.Storage.Driver {
	case StorageSupabase:
		if c.Supabase.URL == "" || c.Supabase.ServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for storage driver %q", c.Storage.Driver)
		}
	case StorageGCS, StorageMemory:
	case StorageS3:
		if c.S3.Endpoint == "" {
			return fmt.Errorf("S3_ENDPOINT is required for storage driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// LogConfig returns the configuration as zap fields
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("db_host", c.DB.Host),
		zap.String("db_name", c.DB.Name),
		zap.String("storage_driver", c.Storage.Driver),
		zap.String("server_port", c.Server.Port),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

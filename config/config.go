package config

import (
	"log"

	"github.com/caarlos0/env/v11"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      int    `env:"PORT" envDefault:"8080"`
	Dsn       string `env:"DSN" envDefault:"postgres://localhost:5432/gunaso?sslmode=disable"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	JwtSecret     string `env:"JWT_SECRET"`
	JwtExpires    string `env:"JWT_EXPIRES" envDefault:"1h"`
	RefreshSecret string `env:"REFRESH_SECRET"`
	RefreshExpiry string `env:"REFRESH_EXPIRY" envDefault:"720h"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	StorageDriver       string `env:"STORAGE_DRIVER" envDefault:"cloudinary"`
	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
	S3Bucket            string `env:"S3_BUCKET"`
	S3Region            string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint          string `env:"S3_ENDPOINT"`
	S3AccessKey         string `env:"S3_ACCESS_KEY"`
	S3SecretKey         string `env:"S3_SECRET_KEY"`
	S3PublicBaseURL     string `env:"S3_PUBLIC_BASE_URL"`

	// evidence limits
	MaxEvidenceBytes int64 `env:"MAX_EVIDENCE_BYTES" envDefault:"20971520"`
	MaxEvidenceFiles int   `env:"MAX_EVIDENCE_FILES" envDefault:"5"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	TrackingTTL   string `env:"TRACKING_CACHE_TTL" envDefault:"2m"`

	SubmitRateLimit  int    `env:"SUBMIT_RATE_LIMIT" envDefault:"10"`
	SubmitRateWindow string `env:"SUBMIT_RATE_WINDOW" envDefault:"1h"`
	AuthRateLimit    int    `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	AuthRateWindow   string `env:"AUTH_RATE_WINDOW" envDefault:"15m"`

	// proxies allowed to set X-Forwarded-For, as addresses or CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	PublicBaseURL      string   `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	ForwardingRulesFile string `env:"FORWARDING_RULES_FILE"`
}

func New() *Config {
	if loadErr := godotenv.Load(".env"); loadErr != nil {
		log.Printf("[Env]: unable to load .env file %v", loadErr)
	}

	var cfg Config

	if parseErr := env.Parse(&cfg); parseErr != nil {
		log.Printf("[Env]: failed to parse environment variables: %v", parseErr)
	}

	return &cfg
}

package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const ProdEnv = "prod"

type DBConfig struct {
	Driver       string // mysql / postgres
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Addr     string // 为空时关闭 redis 相关能力
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type StorageConfig struct {
	Driver        string // local / s3
	UploadDir     string
	PublicBaseURL string
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
}

type AIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// Config 进程启动时构造一次，之后以值的形式传给各组件
type Config struct {
	Env         string
	Port        string
	LogLevel    string
	FrontendURL string
	CORSOrigins []string

	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	SMTP      SMTPConfig
	Kafka     KafkaConfig
	Storage   StorageConfig
	AI        AIConfig
	RateLimit RateLimitConfig
}

// LoadDotEnvs 按优先级加载 .env 文件，已存在的环境变量不会被覆盖
func LoadDotEnvs() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	_ = godotenv.Load(".env." + env + ".local")
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env." + env)
	_ = godotenv.Load(".env")
}

func Load() (Config, error) {
	cfg := Config{
		Env:         envStr("APP_ENV", "dev"),
		Port:        envStr("APP_PORT", "8080"),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		FrontendURL: strings.TrimRight(envStr("FRONTEND_URL", "http://localhost:5173"), "/"),
		CORSOrigins: envList("CORS_ORIGINS", []string{"*"}),
		DB: DBConfig{
			Driver:       strings.ToLower(envStr("DB_DRIVER", "mysql")),
			DSN:          envStr("DB_DSN", "root:root@tcp(127.0.0.1:3306)/pulseloop?charset=utf8mb4&parseTime=True&loc=UTC"),
			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret:  envStr("JWT_ACCESS_SECRET", "dev-access-secret"),
			RefreshSecret: envStr("JWT_REFRESH_SECRET", "dev-refresh-secret"),
			AccessTTL:     envDur("JWT_ACCESS_TTL", 30*time.Minute),
			RefreshTTL:    envDur("JWT_REFRESH_TTL", 24*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envStr("SMTP_FROM", "PulseLoop <no-reply@pulseloop.local>"),
		},
		Kafka: KafkaConfig{
			Brokers: envList("KAFKA_BROKERS", nil),
			Topic:   envStr("KAFKA_TOPIC", "pulseloop.content-events"),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(envStr("STORAGE_DRIVER", "local")),
			UploadDir:     envStr("UPLOAD_DIR", "uploads"),
			PublicBaseURL: strings.TrimRight(os.Getenv("STORAGE_PUBLIC_BASE_URL"), "/"),
			S3Bucket:      os.Getenv("S3_BUCKET"),
			S3Region:      envStr("S3_REGION", "us-east-1"),
			S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		},
		AI: AIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   envStr("OPENAI_MODEL", "gpt-3.5-turbo"),
			BaseURL: strings.TrimRight(envStr("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		},
		RateLimit: RateLimitConfig{
			Enabled:        envBool("RATE_LIMIT_ENABLED", true),
			Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
			RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
			RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
			TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
			Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		},
	}

	if cfg.RateLimit.Capacity < 1 {
		cfg.RateLimit.Capacity = 1
	}
	if cfg.RateLimit.RefillTokens < 1 {
		cfg.RateLimit.RefillTokens = 1
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == ProdEnv }

func (c Config) validate() error {
	switch c.DB.Driver {
	case "mysql", "postgres":
	default:
		return errors.New("DB_DRIVER must be mysql or postgres")
	}
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return errors.New("STORAGE_DRIVER must be local or s3")
	}
	if c.IsProd() {
		if os.Getenv("JWT_ACCESS_SECRET") == "" || os.Getenv("JWT_REFRESH_SECRET") == "" {
			return errors.New("JWT secrets must be set in prod")
		}
	}
	return nil
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

func envList(k string, d []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

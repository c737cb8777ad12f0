package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Env        string
	AppName    string
	ServerPort string
	LogFormat  string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret string
	JWTTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StorageDir     string
	PublicFilesURL string
	MaxUploadMB    int

	SendGridAPIKey string
	MailFrom       string
	FrontendURL    string
	RollbarToken   string

	ReminderInterval time.Duration
	ReminderAfter    time.Duration
	CatalogCacheTTL  time.Duration
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Env:        v.GetString("ENV"),
		AppName:    v.GetString("APP_NAME"),
		ServerPort: v.GetString("SERVER_PORT"),
		LogFormat:  v.GetString("LOG_FORMAT"),

		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTTTL:    v.GetDuration("JWT_TTL"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		StorageDir:     v.GetString("STORAGE_DIR"),
		PublicFilesURL: v.GetString("PUBLIC_FILES_URL"),
		MaxUploadMB:    v.GetInt("MAX_UPLOAD_MB"),

		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		MailFrom:       v.GetString("MAIL_FROM"),
		FrontendURL:    v.GetString("FRONTEND_URL"),
		RollbarToken:   v.GetString("ROLLBAR_TOKEN"),

		ReminderInterval: v.GetDuration("REMINDER_INTERVAL"),
		ReminderAfter:    v.GetDuration("REMINDER_AFTER"),
		CatalogCacheTTL:  v.GetDuration("CATALOG_CACHE_TTL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("APP_NAME", "Learning Platform")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "learning_platform")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("JWT_SECRET", "secret")
	v.SetDefault("JWT_TTL", 72*time.Hour)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("STORAGE_DIR", "./uploads")
	v.SetDefault("PUBLIC_FILES_URL", "/files/")
	v.SetDefault("MAX_UPLOAD_MB", 512)

	v.SetDefault("MAIL_FROM", "noreply@localhost")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")

	v.SetDefault("REMINDER_INTERVAL", time.Hour)
	v.SetDefault("REMINDER_AFTER", 48*time.Hour)
	v.SetDefault("CATALOG_CACHE_TTL", 5*time.Minute)
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.Errorf("JWT_SECRET must not be empty")
	}
	if c.JWTTTL <= 0 {
		return errors.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if c.MaxUploadMB <= 0 {
		return errors.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	return nil
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

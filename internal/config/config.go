package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	AutoCount AutoCountConfig `mapstructure:"autocount"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpire  time.Duration `mapstructure:"access_token_expire"`
	RefreshTokenExpire time.Duration `mapstructure:"refresh_token_expire"`
	Issuer             string        `mapstructure:"issuer"`
}

// AutoCountConfig AutoCount会计桥接配置
// BaseURL为空时降级为离线模式，导出仅生成XLSX文件
type AutoCountConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	ExportDir string `mapstructure:"export_dir"`
}

// NotifyConfig 通知webhook配置
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// EngineConfig 工单生命周期引擎参数
type EngineConfig struct {
	AcceptanceWindow         time.Duration `mapstructure:"acceptance_window"`
	AckWindowBusinessDays    int           `mapstructure:"ack_window_business_days"`
	AllowChecklistOverride   bool          `mapstructure:"allow_checklist_override"`
	MinReasonLength          int           `mapstructure:"min_reason_length"`
	MaxHourlyRate            float64       `mapstructure:"max_hourly_rate"`
	PatternDeviationMultiple float64       `mapstructure:"pattern_deviation_multiple"`
	TimestampTolerance       time.Duration `mapstructure:"timestamp_tolerance"`
}

// SweepConfig 后台巡检任务周期
type SweepConfig struct {
	EscalationInterval time.Duration `mapstructure:"escalation_interval"`
	AckExpireInterval  time.Duration `mapstructure:"ack_expire_interval"`
	AcceptanceInterval time.Duration `mapstructure:"acceptance_interval"`
	ExportInterval     time.Duration `mapstructure:"export_interval"`
	ExportBatchSize    int           `mapstructure:"export_batch_size"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

func Load() (*Config, error) {
	v := viper.New()

	// 设置配置文件
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// 配置文件不存在，使用环境变量和默认值
	}

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// JWT
	v.SetDefault("jwt.access_token_expire", "2h")
	v.SetDefault("jwt.refresh_token_expire", "168h")
	v.SetDefault("jwt.issuer", "ft-field-service")

	// Engine
	v.SetDefault("engine.acceptance_window", "30m")
	v.SetDefault("engine.ack_window_business_days", 3)
	v.SetDefault("engine.allow_checklist_override", false)
	v.SetDefault("engine.min_reason_length", 10)
	v.SetDefault("engine.max_hourly_rate", 1.0)
	v.SetDefault("engine.pattern_deviation_multiple", 3.0)
	v.SetDefault("engine.timestamp_tolerance", "5m")

	// Sweep
	v.SetDefault("sweep.escalation_interval", "1m")
	v.SetDefault("sweep.ack_expire_interval", "1h")
	v.SetDefault("sweep.acceptance_interval", "5m")
	v.SetDefault("sweep.export_interval", "5m")
	v.SetDefault("sweep.export_batch_size", 20)

	// AutoCount
	v.SetDefault("autocount.export_dir", "./exports")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// AutoCount
	v.BindEnv("autocount.base_url", "AUTOCOUNT_BASE_URL")
	v.BindEnv("autocount.api_key", "AUTOCOUNT_API_KEY")
	v.BindEnv("autocount.export_dir", "AUTOCOUNT_EXPORT_DIR")

	// Notify
	v.BindEnv("notify.webhook_url", "NOTIFY_WEBHOOK_URL")
}

// GetEnvOrDefault 获取环境变量，如果不存在则返回默认值
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Redeem   RedeemConfig   `mapstructure:"redeem"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Client   ClientConfig   `mapstructure:"client"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	Mode   string `mapstructure:"mode"`
	NodeID int64  `mapstructure:"node_id"` // snowflake 节点号，多实例部署时需唯一
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, postgres, sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Enabled 未配置 host 时不启用 Redis
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	ExpireHours     int    `mapstructure:"expire_hours"`
	VerifySignature bool   `mapstructure:"verify_signature"` // 默认只解析声明，签名由签发方负责
}

type QueueConfig struct {
	CallbackQueue string `mapstructure:"callback_queue"`
	MaxWorkers    int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type PaymentConfig struct {
	BankName        string        `mapstructure:"bank_name"`
	BankAccount     string        `mapstructure:"bank_account"`
	AccountHolder   string        `mapstructure:"account_holder"`
	QRURLTemplate   string        `mapstructure:"qr_url_template"` // 占位符: {bank} {account} {amount} {reference}
	OrderTTL        time.Duration `mapstructure:"order_ttl"`
	CallbackKeyHash string        `mapstructure:"callback_key_hash"` // bcrypt 哈希
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
}

type RedeemConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// Location 计算兑换日期使用的时区
func (c RedeemConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type ClientConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

func Load(configPath string) (*Config, error) {
	// 优先读取 config.local.yaml（包含真实密钥，不提交到 git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.node_id", 1)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("queue.callback_queue", "payment_callbacks")
	v.SetDefault("queue.max_workers", 2)
	v.SetDefault("payment.order_ttl", 15*time.Minute)
	v.SetDefault("payment.sweep_interval", time.Minute)
	v.SetDefault("redeem.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("client.base_url", "http://localhost:8080/api/v1")
	v.SetDefault("client.timeout", 10*time.Second)
	v.SetDefault("client.poll_interval", 5*time.Second)
	v.SetDefault("client.max_retries", 3)
}

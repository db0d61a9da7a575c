// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 是覆盖配置项时使用的环境变量前缀，例如 LAUNCHGPT_SERVER_PORT。
const EnvPrefix = "LAUNCHGPT"

var (
	ErrMissingSecret = errors.New("config: session.secret (JWT_SECRET) is required")
	ErrMissingAPIKey = errors.New("config: llm.api_key (GEMINI_API) is required")
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Session       SessionConfig       `mapstructure:"session"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	LLM           LLMConfig           `mapstructure:"llm"`
	History       HistoryConfig       `mapstructure:"history"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// ClientURL 是前端地址，总会被加入 CORS 白名单。
	ClientURL      string        `mapstructure:"client_url"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
}

// Origins 返回去重后的 CORS 白名单。
func (s ServerConfig) Origins() []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range append([]string{s.ClientURL}, s.AllowedOrigins...) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

// SessionConfig 存储会话令牌与 cookie 的配置。
type SessionConfig struct {
	Secret       string        `mapstructure:"secret"`
	TTL          time.Duration `mapstructure:"ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 以逗号分隔。
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	Topic      string `mapstructure:"topic"`
	GroupID    string `mapstructure:"group_id"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// BrokerList 将 Brokers 拆分为地址列表。
func (k KafkaConfig) BrokerList() []string {
	return splitList(k.Brokers)
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// AddressList 将 Addresses 拆分为地址列表。
func (e ElasticsearchConfig) AddressList() []string {
	return splitList(e.Addresses)
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	BucketName      string        `mapstructure:"bucket_name"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Timeout    time.Duration       `mapstructure:"timeout"`
	MaxRetries int                 `mapstructure:"max_retries"`
	Backoff    time.Duration       `mapstructure:"backoff"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
	Prompt     LLMPromptConfig     `mapstructure:"prompt"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// LLMPromptConfig 配置系统提示与用户消息模板。为空时使用内置的 ProductLaunchGPT 提示。
type LLMPromptConfig struct {
	System       string `mapstructure:"system"`
	UserTemplate string `mapstructure:"user_template"`
}

// HistoryConfig 存储聊天历史相关的配置。
type HistoryConfig struct {
	Limit    int           `mapstructure:"limit"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.client_url", "http://localhost:5173")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.shutdown_grace", 5*time.Second)

	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.cookie_name", "token")
	v.SetDefault("session.cookie_secure", false)

	v.SetDefault("database.mysql.dsn", "root:root@tcp(127.0.0.1:3306)/launchgpt?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("database.redis.addr", "127.0.0.1:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")

	v.SetDefault("kafka.brokers", "127.0.0.1:9092")
	v.SetDefault("kafka.topic", "launchgpt-chat-events")
	v.SetDefault("kafka.group_id", "launchgpt-archiver")
	v.SetDefault("kafka.max_retries", 3)

	v.SetDefault("elasticsearch.addresses", "http://127.0.0.1:9200")
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.index_name", "launchgpt_chats")

	v.SetDefault("minio.endpoint", "127.0.0.1:9000")
	v.SetDefault("minio.access_key_id", "minioadmin")
	v.SetDefault("minio.secret_access_key", "minioadmin")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket_name", "launchgpt")
	v.SetDefault("minio.presign_expiry", 15*time.Minute)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.backoff", 500*time.Millisecond)
	v.SetDefault("llm.generation.temperature", 0.0)
	v.SetDefault("llm.generation.top_p", 0.0)
	v.SetDefault("llm.generation.max_tokens", 0)
	v.SetDefault("llm.prompt.system", "")
	v.SetDefault("llm.prompt.user_template", "")

	v.SetDefault("history.limit", 50)
	v.SetDefault("history.cache_ttl", 10*time.Minute)
}

// 旧版部署使用的环境变量名，与带前缀的变量同时生效。
var legacyEnv = map[string]string{
	"session.secret":    "JWT_SECRET",
	"llm.api_key":       "GEMINI_API",
	"server.port":       "PORT",
	"server.client_url": "CLIENT_URL",
}

// Load 读取 .env（若存在）与 configPath 指向的 YAML 文件，应用环境变量覆盖后返回配置。
// configPath 为空时只使用默认值与环境变量。
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("绑定环境变量 %s 失败: %w", legacy, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查必填项。
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Session.Secret) == "" {
		return ErrMissingSecret
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.History.Limit <= 0 {
		c.History.Limit = 50
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

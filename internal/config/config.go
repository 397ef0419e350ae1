// Package config 负责加载和校验应用程序的配置。
//
// 加载顺序：默认值 -> 可选的 YAML 文件 -> 环境变量（优先级最高）。
// 启动前会先尝试加载 .env 文件。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Tika      TikaConfig      `mapstructure:"tika"`
	Search    SearchConfig    `mapstructure:"search"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Chat      ChatConfig      `mapstructure:"chat"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储关系库与 Redis 的配置。
type DatabaseConfig struct {
	// Driver 取值 mysql 或 sqlite。
	Driver      string      `mapstructure:"driver"`
	DSN         string      `mapstructure:"dsn"`
	AutoMigrate bool        `mapstructure:"auto_migrate"`
	Redis       RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// SearchConfig 存储向量检索服务的配置。
type SearchConfig struct {
	URL       string `mapstructure:"url"`
	APIKey    string `mapstructure:"api_key"`
	IndexName string `mapstructure:"index_name"`
	// Mode 为 hybrid（默认）或 vector。
	Mode string `mapstructure:"mode"`
	TopK int    `mapstructure:"top_k"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	APIVersion string `mapstructure:"api_version"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	APIVersion string `mapstructure:"api_version"`
	MaxTokens  int    `mapstructure:"max_tokens"`
}

// ChatConfig 存储问答流程本身的配置。
type ChatConfig struct {
	ResumeOwnerName string `mapstructure:"resume_owner_name"`
	WindowSize      int    `mapstructure:"window_size"`
	// RoleAwareTrim 按角色而不是位置剔除欢迎语与当前问题。
	RoleAwareTrim bool `mapstructure:"role_aware_trim"`
	// FakeAnswers 打开后跳过检索与 LLM 调用，返回固定答案。
	FakeAnswers bool `mapstructure:"fake_answers"`
}

// envBindings 把配置键映射到环境变量名。
var envBindings = map[string][]string{
	"llm.api_key":             {"OPENAI_API_KEY"},
	"embedding.api_key":       {"OPENAI_API_KEY"},
	"llm.api_version":         {"OPENAI_API_VERSION"},
	"embedding.api_version":   {"OPENAI_API_VERSION"},
	"llm.base_url":            {"OPENAI_BASE_URL"},
	"embedding.base_url":      {"OPENAI_BASE_URL"},
	"llm.model":               {"LLM_MODEL"},
	"embedding.model":         {"EMBEDDING_MODEL", "MODEL"},
	"search.api_key":          {"AZURE_AI_SEARCH_API_KEY"},
	"search.url":              {"AZURE_AI_SEARCH_URL"},
	"search.index_name":       {"INDEX_NAME"},
	"database.dsn":            {"SQL_CONN_STR"},
	"database.driver":         {"SQL_DRIVER"},
	"database.redis.addr":     {"REDIS_ADDR"},
	"database.redis.password": {"REDIS_PASSWORD"},
	"chat.resume_owner_name":  {"RESUME_OWNER_NAME"},
	"chat.fake_answers":       {"FAKE_ANSWERS"},
	"jwt.secret":              {"JWT_SECRET"},
	"kafka.brokers":           {"KAFKA_BROKERS"},
	"minio.endpoint":          {"MINIO_ENDPOINT"},
	"minio.access_key_id":     {"MINIO_ACCESS_KEY_ID"},
	"minio.secret_access_key": {"MINIO_SECRET_ACCESS_KEY"},
	"tika.server_url":         {"TIKA_URL"},
	"log.level":               {"LOG_LEVEL"},
	"server.port":             {"PORT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("jwt.access_token_expire_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "resume-ingest")
	v.SetDefault("kafka.group_id", "resume-chat-go-consumer")
	v.SetDefault("tika.server_url", "http://localhost:9998")
	v.SetDefault("search.index_name", "resume_chatbot_index_v2")
	v.SetDefault("search.mode", "hybrid")
	v.SetDefault("search.top_k", 4)
	v.SetDefault("minio.bucket_name", "resumes")
	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.model", "text-embedding-ada-002")
	v.SetDefault("embedding.api_version", "2023-05-15")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_version", "2023-05-15")
	v.SetDefault("chat.window_size", 6)
}

// Load 读取配置并校验必填项。configPath 为空或文件不存在时只使用默认值与环境变量。
func Load(configPath string) (*Config, error) {
	// .env 不存在是正常情况
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("绑定环境变量 %s 失败: %w", key, err)
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

// Validate 检查启动必需的配置项，一次性报告所有缺失的键。
func (c *Config) Validate() error {
	var missing []string
	if !c.Chat.FakeAnswers && c.LLM.APIKey == "" {
		missing = append(missing, "openai_api_key")
	}
	if c.Search.URL == "" {
		missing = append(missing, "azure_ai_search_url")
	}
	if c.Database.DSN == "" {
		missing = append(missing, "sql_conn_str")
	}
	if c.Chat.ResumeOwnerName == "" {
		missing = append(missing, "resume_owner_name")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "jwt.secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingOption, strings.Join(missing, ", "))
	}
	if c.Search.Mode != "hybrid" && c.Search.Mode != "vector" {
		return fmt.Errorf("search.mode 取值无效: %q", c.Search.Mode)
	}
	return nil
}

// ErrMissingOption 表示缺少启动必需的配置项。
var ErrMissingOption = errors.New("missing required configuration")

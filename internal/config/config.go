package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/madchat/backend/internal/model/persona"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Engine EngineConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	engine, err := loadEngineConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Engine: engine}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// Backend names a model transport.
type Backend string

const (
	BackendNone   Backend = ""
	BackendArk    Backend = "ark"
	BackendOpenAI Backend = "openai"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Backend Backend

	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	Temperature    float64
	TopP           float64
	MaxTokens      int
	RequestTimeout time.Duration
}

// ArkEnabled 表示是否提供了 Ark 必需的密钥。
func (c AIConfig) ArkEnabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// OpenAIEnabled reports whether an OpenAI-compatible endpoint is usable.
func (c AIConfig) OpenAIEnabled() bool {
	return c.OpenAIModel != "" && c.OpenAIBaseURL != ""
}

// Enabled reports whether the selected backend has what it needs.
func (c AIConfig) Enabled() bool {
	switch c.Backend {
	case BackendArk:
		return c.ArkEnabled()
	case BackendOpenAI:
		return c.OpenAIEnabled()
	default:
		return false
	}
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.ArkEnabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	temperature := float32(c.Temperature)
	topP := float32(c.TopP)
	maxTokens := c.MaxTokens

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		TopP:        &topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseFloatEnv("CHAT_TEMPERATURE", 0.3)
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseFloatEnv("CHAT_TOP_P", 0.9)
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens := 400
	if override, err := parseOptionalIntEnv("CHAT_MAX_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		maxTokens = *override
	}

	timeout, err := parseDurationEnv("AI_REQUEST_TIMEOUT", 60*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		OpenAIAPIKey:   strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:  getEnvOrDefault("OPENAI_BASE_URL", "http://localhost:11434/v1/"),
		OpenAIModel:    strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		RequestTimeout: timeout,
	}

	switch raw := strings.ToLower(strings.TrimSpace(os.Getenv("MODEL_BACKEND"))); raw {
	case "":
		// 未指定时按凭证自动选择。
		if cfg.ArkEnabled() {
			cfg.Backend = BackendArk
		} else if cfg.OpenAIEnabled() {
			cfg.Backend = BackendOpenAI
		}
	case string(BackendArk):
		cfg.Backend = BackendArk
	case string(BackendOpenAI):
		cfg.Backend = BackendOpenAI
	default:
		return AIConfig{}, fmt.Errorf("invalid MODEL_BACKEND value %q: want ark or openai", raw)
	}

	return cfg, nil
}

// EngineConfig controls prompt synthesis, reply post-processing and session upkeep.
type EngineConfig struct {
	Generation          persona.Generation
	DefaultSystemPrompt string
	SystemPromptsFile   string
	SessionMaxAge       time.Duration
	SweepInterval       time.Duration
}

// Presets loads the numbered system prompts, from file when one is configured.
func (c EngineConfig) Presets() (*persona.MemoryStore, error) {
	if c.SystemPromptsFile == "" {
		return persona.NewMemoryStore(persona.Seed()), nil
	}
	return persona.LoadFile(c.SystemPromptsFile)
}

func loadEngineConfig() (EngineConfig, error) {
	generation := persona.GenerationCensored
	if raw := strings.TrimSpace(os.Getenv("ENGINE_GENERATION")); raw != "" {
		parsed, ok := persona.ParseGeneration(raw)
		if !ok {
			return EngineConfig{}, fmt.Errorf("invalid ENGINE_GENERATION value %q: want censored or uncensored", raw)
		}
		generation = parsed
	}

	maxAge, err := parseDurationEnv("SESSION_MAX_AGE", 24*time.Hour)
	if err != nil {
		return EngineConfig{}, err
	}

	sweep, err := parseDurationEnv("SESSION_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return EngineConfig{}, err
	}

	return EngineConfig{
		Generation:          generation,
		DefaultSystemPrompt: strings.TrimSpace(os.Getenv("DEFAULT_SYSTEM_PROMPT")),
		SystemPromptsFile:   strings.TrimSpace(os.Getenv("SYSTEM_PROMPTS_FILE")),
		SessionMaxAge:       maxAge,
		SweepInterval:       sweep,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	val, err := parseOptionalFloatEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	return *val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, value)
	}
	return val, nil
}

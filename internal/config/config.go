package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"gopkg.in/yaml.v3"
)

// Supported generation providers.
const (
	ProviderArk    = "ark"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Supported store drivers.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config 聚合整个服务的配置项。It is loaded once at process start and
// passed by value afterwards; nothing below reads the environment again.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	AI      AIConfig      `yaml:"ai"`
	Safety  SafetyConfig  `yaml:"safety"`
	Journal JournalConfig `yaml:"journal"`
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	AccessKey   string        `yaml:"access_key"`
	SecretKey   string        `yaml:"secret_key"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	Region      string        `yaml:"region"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// SafetyConfig controls the crisis gate.
type SafetyConfig struct {
	SemanticCheck bool   `yaml:"semantic_check"`
	Model         string `yaml:"model"`
}

// JournalConfig controls the journaling pipeline.
type JournalConfig struct {
	UserName       string `yaml:"user_name"`
	Timezone       string `yaml:"timezone"`
	ContextDays    int    `yaml:"context_days"`
	ContextEntries int    `yaml:"context_entries"`
}

// StoreConfig selects where entries and the profile live.
type StoreConfig struct {
	Driver  string `yaml:"driver"`
	DataDir string `yaml:"data_dir"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		AI: AIConfig{
			Temperature: 0.7,
			MaxTokens:   500,
			Timeout:     30 * time.Second,
		},
		Safety: SafetyConfig{SemanticCheck: true},
		Journal: JournalConfig{
			Timezone:       "Local",
			ContextDays:    3,
			ContextEntries: 7,
		},
		Store: StoreConfig{Driver: StoreFile, DataDir: "data"},
		Log:   LogConfig{Level: "info"},
	}
}

// Load 从环境变量加载配置。A YAML file named by DAYBOOK_CONFIG is applied
// first; environment variables win over it.
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("DAYBOOK_CONFIG")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyServerEnv(&cfg.Server); err != nil {
		return nil, err
	}
	if err := applyAIEnv(&cfg.AI); err != nil {
		return nil, err
	}
	if err := applySafetyEnv(&cfg.Safety, cfg.AI); err != nil {
		return nil, err
	}
	if err := applyJournalEnv(&cfg.Journal); err != nil {
		return nil, err
	}
	applyStoreEnv(&cfg.Store)
	if err := applyLogEnv(&cfg.Log); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.AI.Provider {
	case "", ProviderArk, ProviderGemini, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unsupported ai provider %q", c.AI.Provider)
	}
	switch c.Store.Driver {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Journal.ContextDays < 0 {
		return fmt.Errorf("context_days must not be negative, got %d", c.Journal.ContextDays)
	}
	if _, err := c.Journal.Location(); err != nil {
		return err
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s not found", path)
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyServerEnv 解析服务器监听地址。
func applyServerEnv(server *ServerConfig) error {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		return nil
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		server.Addr = port
		return nil
	}

	if strings.Contains(port, " ") {
		return fmt.Errorf("invalid PORT value: %q", port)
	}

	server.Addr = ":" + port
	return nil
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	case ProviderGemini, ProviderOpenAI:
		return c.APIKey != ""
	case ProviderOllama:
		return c.BaseURL != ""
	default:
		return false
	}
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.Provider != ProviderArk || !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	temperature := float32(c.Temperature)
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
	}

	return ark.NewChatModel(ctx, cfg)
}

func applyAIEnv(ai *AIConfig) error {
	temperature, err := parseOptionalFloatEnv("DAYBOOK_AI_TEMPERATURE")
	if err != nil {
		return err
	}
	if temperature != nil {
		ai.Temperature = *temperature
	}

	maxTokens, err := parseOptionalIntEnv("DAYBOOK_AI_MAX_TOKENS")
	if err != nil {
		return err
	}
	if maxTokens != nil {
		ai.MaxTokens = *maxTokens
	}

	timeout, err := parseOptionalIntEnv("DAYBOOK_AI_TIMEOUT")
	if err != nil {
		return err
	}
	if timeout != nil {
		if *timeout < 1 {
			return fmt.Errorf("invalid DAYBOOK_AI_TIMEOUT value %d: must be at least 1 second", *timeout)
		}
		ai.Timeout = time.Duration(*timeout) * time.Second
	}

	if provider := strings.ToLower(strings.TrimSpace(os.Getenv("DAYBOOK_AI_PROVIDER"))); provider != "" {
		ai.Provider = provider
	}
	if ai.Provider == "" {
		ai.Provider = inferProvider()
	}

	ai.Model = getEnvOrDefault("DAYBOOK_AI_MODEL", ai.Model)

	switch ai.Provider {
	case ProviderArk:
		ai.APIKey = getEnvOrDefault("ARK_API_KEY", ai.APIKey)
		ai.AccessKey = getEnvOrDefault("ARK_ACCESS_KEY", ai.AccessKey)
		ai.SecretKey = getEnvOrDefault("ARK_SECRET_KEY", ai.SecretKey)
		ai.BaseURL = getEnvOrDefault("ARK_BASE_URL", orDefault(ai.BaseURL, "https://ark.cn-beijing.volces.com/api/v3"))
		ai.Region = getEnvOrDefault("ARK_REGION", orDefault(ai.Region, "cn-beijing"))
	case ProviderGemini:
		ai.APIKey = getEnvOrDefault("GEMINI_API_KEY", ai.APIKey)
		ai.Model = orDefault(ai.Model, "gemini-2.0-flash-lite")
	case ProviderOpenAI:
		ai.APIKey = getEnvOrDefault("OPENAI_API_KEY", ai.APIKey)
		ai.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", ai.BaseURL)
		ai.Model = orDefault(ai.Model, "gpt-4o-mini")
	case ProviderOllama:
		ai.APIKey = getEnvOrDefault("OLLAMA_API_KEY", orDefault(ai.APIKey, "ollama"))
		ai.BaseURL = getEnvOrDefault("OLLAMA_BASE_URL", orDefault(ai.BaseURL, "http://localhost:11434/v1/"))
		ai.Model = orDefault(ai.Model, "llama3.1:8b")
	}
	return nil
}

// inferProvider picks the first provider whose credentials are present.
func inferProvider() string {
	switch {
	case strings.TrimSpace(os.Getenv("GEMINI_API_KEY")) != "":
		return ProviderGemini
	case strings.TrimSpace(os.Getenv("ARK_API_KEY")) != "",
		strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")) != "":
		return ProviderArk
	case strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) != "":
		return ProviderOpenAI
	case strings.TrimSpace(os.Getenv("OLLAMA_BASE_URL")) != "":
		return ProviderOllama
	default:
		return ProviderGemini
	}
}

func applySafetyEnv(safety *SafetyConfig, ai AIConfig) error {
	semantic, err := parseBoolEnv("DAYBOOK_SEMANTIC_CRISIS_CHECK", safety.SemanticCheck)
	if err != nil {
		return err
	}
	safety.SemanticCheck = semantic
	safety.Model = getEnvOrDefault("DAYBOOK_SAFETY_MODEL", orDefault(safety.Model, ai.Model))
	return nil
}

func applyJournalEnv(journal *JournalConfig) error {
	journal.UserName = getEnvOrDefault("DAYBOOK_USER_NAME", journal.UserName)
	journal.Timezone = getEnvOrDefault("DAYBOOK_TIMEZONE", journal.Timezone)

	days, err := parseOptionalIntEnv("DAYBOOK_CONTEXT_DAYS")
	if err != nil {
		return err
	}
	if days != nil {
		journal.ContextDays = *days
	}

	entries, err := parseOptionalIntEnv("DAYBOOK_CONTEXT_ENTRIES")
	if err != nil {
		return err
	}
	if entries != nil {
		journal.ContextEntries = *entries
	}
	return nil
}

// Location resolves the configured timezone used to decide what "today" is.
func (c JournalConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

func applyStoreEnv(store *StoreConfig) {
	store.Driver = strings.ToLower(getEnvOrDefault("DAYBOOK_STORE", store.Driver))
	store.DataDir = getEnvOrDefault("DAYBOOK_DATA_DIR", store.DataDir)
}

func applyLogEnv(logCfg *LogConfig) error {
	logCfg.Level = strings.ToLower(getEnvOrDefault("DAYBOOK_LOG_LEVEL", logCfg.Level))
	dev, err := parseBoolEnv("DAYBOOK_LOG_DEV", logCfg.Development)
	if err != nil {
		return err
	}
	logCfg.Development = dev
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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

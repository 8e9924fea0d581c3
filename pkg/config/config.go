// Package config loads the YAML configuration file every pipeline binary
// takes via --config. One Config struct is shared across all three
// pipelines; each pipeline's main only reads the fields it needs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LLMConfig is the llm.* section.
type LLMConfig struct {
	ModelName             string  `yaml:"model_name"`
	APIKey                string  `yaml:"api_key"`
	BaseURL               string  `yaml:"base_url"`
	Temperature           float64 `yaml:"temperature"`
	MaxTokens             int     `yaml:"max_tokens"`
	MaxConcurrentRequests int     `yaml:"max_concurrent_requests"`
}

// StorageConfig is the storage.* section.
type StorageConfig struct {
	BasePath string `yaml:"base_path"`
}

// ObservabilityConfig configures logging and the metrics HTTP server.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	MetricsPort int    `yaml:"metrics_port"`
}

// Config mirrors the top-level YAML keys spec.md section 6 names, plus the
// observability block SPEC_FULL.md adds.
type Config struct {
	LLM             LLMConfig           `yaml:"llm"`
	Storage         StorageConfig       `yaml:"storage"`
	Observability   ObservabilityConfig `yaml:"observability"`
	ArxivTopicList  []string            `yaml:"arxiv_topic_list"`
	ArxivOffset     int                 `yaml:"arxiv_search_offset"`
	ArxivLimit      int                 `yaml:"arxiv_search_limit"`
	EnableLLMFilter bool                `yaml:"enable_llm_filter"`
	LLMFilterTopic  string              `yaml:"llm_filter_topic"`
	ProcessBatchSize int                `yaml:"process_batch_size"`
	FeishuWebhookURL string             `yaml:"feishu_webhook_url"`
}

// Load reads and parses the YAML file at path, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LLM.ModelName == "" {
		c.LLM.ModelName = "gpt-3.5-turbo"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 2000
	}
	if c.LLM.MaxConcurrentRequests == 0 {
		c.LLM.MaxConcurrentRequests = 5
	}
	if c.Storage.BasePath == "" {
		c.Storage.BasePath = "./data"
	}
	if c.ArxivLimit == 0 {
		c.ArxivLimit = 100
	}
	if c.ProcessBatchSize == 0 {
		c.ProcessBatchSize = 10
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if c.Observability.MetricsPort == 0 {
		c.Observability.MetricsPort = 9090
	}
}

// validate aborts the run early on a configuration a pipeline cannot start
// without, rather than failing mid-run after arbitrary work is already done.
func (c *Config) validate() error {
	if c.Storage.BasePath == "" {
		return fmt.Errorf("storage.base_path is required")
	}
	if len(c.ArxivTopicList) == 0 {
		return fmt.Errorf("arxiv_topic_list must have at least one topic")
	}
	if c.EnableLLMFilter && c.LLMFilterTopic == "" {
		return fmt.Errorf("llm_filter_topic is required when enable_llm_filter is true")
	}
	return nil
}

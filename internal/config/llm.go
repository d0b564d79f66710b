package config

import "github.com/caarlos0/env/v11"

// LLMConfig is the environment-level fallback for the model provider. The
// database row set through the API takes precedence when present.
type LLMConfig struct {
	BaseURL        string   `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	APIKey         string   `env:"OPENAI_API_KEY"`
	Model          string   `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	Models         []string `env:"OPENAI_MODELS" envSeparator:","`
	RequestTimeout int      `env:"LLM_REQUEST_TIMEOUT_SECONDS" envDefault:"120"`
}

func LoadLLM() (LLMConfig, error) {
	var cfg LLMConfig
	err := env.Parse(&cfg)
	return cfg, err
}

// Package llm provides chat-completion clients for the agent stages. Both an
// OpenAI-compatible backend and Anthropic are supported behind one interface.
package llm

import "context"

// Client is the completion surface the agents depend on.
type Client interface {
	// GenerateResponse sends a single-turn prompt and returns the text reply.
	GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (*Result, error)
}

// Result carries the completion text plus token usage for logging.
type Result struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Config selects and configures a backend.
type Config struct {
	Provider  string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint  string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model     string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o"`
	FastModel string `yaml:"fast_model" env:"LLM_FAST_MODEL"`
	APIKey    string `yaml:"-" env:"LLM_API_KEY"`
	MaxTokens int    `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"4096"`
}

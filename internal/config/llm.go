package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-budget-must-balance/internal/llm"
)

// LLMConfigs returns the completion and transcription client configs.
// Transcription always goes to OpenAI, so it carries the OpenAI key even
// when completions use Anthropic.
func LLMConfigs() (completion llm.Config, transcription llm.Config) {
	base := llm.Config{
		Provider:           strings.ToLower(viper.GetString("llm.provider")),
		Model:              viper.GetString("llm.model"),
		TranscriptionModel: viper.GetString("llm.transcription_model"),
		BaseURL:            viper.GetString("llm.base_url"),
		Temperature:        viper.GetFloat64("llm.temperature"),
		MaxTokens:          viper.GetInt("llm.max_tokens"),
		MaxRetries:         viper.GetInt("llm.max_retries"),
		RetryDelay:         viper.GetDuration("llm.retry_delay"),
		CacheTTL:           viper.GetDuration("llm.cache_ttl"),
		RateLimit:          viper.GetInt("llm.rate_limit"),
		Timeout:            viper.GetDuration("llm.timeout"),
	}
	if base.Provider == "" {
		base.Provider = "openai"
	}

	openAIKey := firstNonEmpty(viper.GetString("llm.openai_api_key"), os.Getenv("OPENAI_API_KEY"))
	anthropicKey := firstNonEmpty(viper.GetString("llm.anthropic_api_key"), os.Getenv("ANTHROPIC_API_KEY"))

	completion = base
	switch base.Provider {
	case "anthropic":
		completion.APIKey = anthropicKey
	default:
		completion.APIKey = openAIKey
	}

	transcription = base
	transcription.Provider = "openai"
	transcription.APIKey = openAIKey
	if base.Provider != "openai" {
		// Model and base URL name the completion provider's endpoint.
		transcription.Model = ""
		transcription.BaseURL = viper.GetString("llm.transcription_base_url")
	}

	return completion, transcription
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

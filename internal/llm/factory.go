package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-budget-must-balance/internal/common"
)

// NewCompleter creates a completion client for the configured provider.
func NewCompleter(cfg Config) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		client, err := newOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "anthropic":
		client, err := newAnthropicClient(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}
}

// NewTranscriber creates a speech-to-text client. Only OpenAI offers one,
// so cfg must carry an OpenAI key regardless of the completion provider.
func NewTranscriber(cfg Config) (Transcriber, error) {
	client, err := newOpenAIClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/zaprelay/zaprelay/llm"
	"github.com/zaprelay/zaprelay/providers/gemini"
	"github.com/zaprelay/zaprelay/wasender"
)

func wasenderFromViper() (*wasender.Client, error) {
	endpoint := strings.TrimSpace(viper.GetString("wasender.endpoint"))
	token := strings.TrimSpace(viper.GetString("wasender.api_token"))
	if token == "" {
		return nil, fmt.Errorf("missing wasender.api_token (set via config or %s_WASENDER_API_TOKEN)", envPrefix)
	}
	return wasender.New(endpoint, token, viper.GetInt("wasender.max_retries")), nil
}

// generationFromViper returns nil without error when no API key is
// configured: the relay then degrades free-form turns instead of
// refusing to start.
func generationFromViper(logger *slog.Logger) (llm.Client, error) {
	apiKey := strings.TrimSpace(viper.GetString("llm.api_key"))
	if apiKey == "" {
		logger.Warn("generation_disabled", "reason", "llm.api_key not configured")
		return nil, nil
	}

	provider := strings.ToLower(strings.TrimSpace(viper.GetString("llm.provider")))
	switch provider {
	case "", "gemini":
		return gemini.New(
			viper.GetString("llm.endpoint"),
			apiKey,
			viper.GetString("llm.model"),
			viper.GetDuration("llm.request_timeout"),
		), nil
	default:
		return nil, fmt.Errorf("unknown llm.provider: %s", provider)
	}
}

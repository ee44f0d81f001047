package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Generation backend.
	viper.SetDefault("llm.provider", "gemini")
	viper.SetDefault("llm.endpoint", "https://generativelanguage.googleapis.com")
	viper.SetDefault("llm.model", "gemini-2.0-flash")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.request_timeout", 90*time.Second)

	// Global
	viper.SetDefault("file_state_dir", "~/.zaprelay")
	viper.SetDefault("conversations.dir_name", "conversations")
	viper.SetDefault("conversations.max_history", 20)
	viper.SetDefault("persona.path", "persona.yaml")

	// WaSender API
	viper.SetDefault("wasender.endpoint", "https://www.wasenderapi.com")
	viper.SetDefault("wasender.api_token", "")
	viper.SetDefault("wasender.max_retries", 3)

	// Chunked delivery pacing
	viper.SetDefault("chunk.max_lines", 3)
	viper.SetDefault("chunk.max_chars", 100)
	viper.SetDefault("chunk.delay_min", 550*time.Millisecond)
	viper.SetDefault("chunk.delay_max", 1500*time.Millisecond)

	// Escalation notices
	viper.SetDefault("notify.group_id", "")

	// HTTP server
	viper.SetDefault("http.bind", "0.0.0.0")
	viper.SetDefault("http.port", 8080)

	// Per-user pipeline workers
	viper.SetDefault("dispatch.max_in_flight", 8)
	viper.SetDefault("dispatch.queue_size", 16)
}

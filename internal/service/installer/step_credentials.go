package installer

import (
	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/providers/llm"
)

func needsAPIKey(s *InstallState) bool {
	return !s.is(keyProvider, "ollama") && !s.is(keyProvider, "custom")
}

func NewAPIKeyStep() Step {
	return NewInputStep("Enter the provider API key", keyAPIKey, "sk-...",
		secret(), required(), onlyWhen(needsAPIKey))
}

func NewOllamaURLStep() Step {
	return NewInputStep("Enter the Ollama base URL", keyBaseURL, llm.DefaultOllamaURL,
		withDefault(llm.DefaultOllamaURL), onlyWhen(func(s *InstallState) bool { return s.is(keyProvider, "ollama") }))
}

func NewCustomURLStep() Step {
	return NewInputStep("Enter the OpenAI-compatible base URL", keyBaseURL, "https://api.example.com",
		required(), onlyWhen(func(s *InstallState) bool { return s.is(keyProvider, "custom") }))
}

func telegramSelected(s *InstallState) bool { return s.is(keyTransport, config.TransportTelegram) }
func matrixSelected(s *InstallState) bool   { return s.is(keyTransport, config.TransportMatrix) }

func NewTelegramSteps() []Step {
	return []Step{
		NewInputStep("Enter your Telegram bot token", keyTelegramToken, "123456789:ABCDEF...",
			secret(), required(), onlyWhen(telegramSelected)),
		NewInputStep("Enter your Telegram user ID (owner)", keyTelegramOwner, "123456789",
			required(), onlyWhen(telegramSelected)),
	}
}

func NewMatrixSteps() []Step {
	return []Step{
		NewInputStep("Enter the Matrix homeserver URL", keyMatrixServer, "https://matrix.example.org",
			required(), onlyWhen(matrixSelected)),
		NewInputStep("Enter the bot's Matrix user ID", keyMatrixUser, "@tasker:example.org",
			required(), onlyWhen(matrixSelected)),
		NewInputStep("Enter the bot's Matrix password", keyMatrixPass, "",
			secret(), required(), onlyWhen(matrixSelected)),
		NewInputStep("Enter the room ID to listen in", keyMatrixRoom, "!abcdef:example.org",
			required(), onlyWhen(matrixSelected)),
	}
}

func NewMCPURLStep() Step {
	return NewInputStep("Enter the MCP memory server URL", keyMCPMemoryURL, "http://localhost:8300/sse",
		required(), onlyWhen(func(s *InstallState) bool { return s.is(keyBackend, config.BackendMCP) }))
}

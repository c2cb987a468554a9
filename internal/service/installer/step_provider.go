package installer

import "github.com/Alpha200/ha-ai-tasker/internal/config"

func NewProviderStep() Step {
	return &ChoiceStep{
		title: "Select the reasoning provider",
		key:   keyProvider,
		choices: []choice{
			{"OpenAI", "openai"},
			{"Anthropic", "anthropic"},
			{"OpenRouter", "openrouter"},
			{"Ollama", "ollama"},
			{"Custom OpenAI-compatible endpoint", "custom"},
		},
	}
}

func NewChannelStep() Step {
	return &ChoiceStep{
		title: "Select the chat transport",
		key:   keyTransport,
		choices: []choice{
			{"Matrix", config.TransportMatrix},
			{"Telegram", config.TransportTelegram},
			{"None (HTTP triggers only)", config.TransportNone},
		},
	}
}

func NewBackendStep() Step {
	return &ChoiceStep{
		title: "Select where memories are stored",
		key:   keyBackend,
		choices: []choice{
			{"Local SQLite database", config.BackendSQLite},
			{"MCP memory server", config.BackendMCP},
			{"In memory (lost on restart)", config.BackendMemory},
		},
	}
}

package llm

const DefaultOllamaURL = "http://localhost:11434"

type Ollama struct {
	*OpenAICompatible
}

// NewOllama talks to the OpenAI compatible endpoint of an Ollama server.
// The API key is only needed behind an authenticating proxy.
func NewOllama(baseURL, apiKey, model string, opts ...Option) *Ollama {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &Ollama{
		OpenAICompatible: NewOpenAICompatible(OpenAICompatibleConfig{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			Model:      model,
			AuthHeader: "Authorization",
			AuthPrefix: "Bearer ",
		}, opts...),
	}
}

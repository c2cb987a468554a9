package installer

// Keys the wizard writes. They match the env tags in internal/config.
const (
	keyProvider      = "LLM_PROVIDER"
	keyAPIKey        = "OPENAI_API_KEY"
	keyBaseURL       = "LLM_BASE_URL"
	keyTransport     = "CHAT_TRANSPORT"
	keyBackend       = "MEMORY_BACKEND"
	keyMCPMemoryURL  = "MCP_SERVER_URL_MEMORY"
	keyTelegramToken = "TELEGRAM_TOKEN"
	keyTelegramOwner = "TELEGRAM_OWNER_ID"
	keyMatrixServer  = "MATRIX_HOMESERVER"
	keyMatrixUser    = "MATRIX_USER_ID"
	keyMatrixPass    = "MATRIX_PASSWORD"
	keyMatrixRoom    = "MATRIX_ROOM_ID"
	keyDebug         = "TASKER_DEBUG"
)

type InstallState struct {
	EnvVars map[string]string
}

func NewInstallState() *InstallState {
	return &InstallState{
		EnvVars: make(map[string]string),
	}
}

func (s *InstallState) is(key, value string) bool {
	return s.EnvVars[key] == value
}

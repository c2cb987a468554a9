package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/providers/llm"
	"github.com/Alpha200/ha-ai-tasker/internal/providers/location"
	"github.com/Alpha200/ha-ai-tasker/internal/providers/mcp"
	"github.com/Alpha200/ha-ai-tasker/internal/providers/weather"
	"github.com/Alpha200/ha-ai-tasker/internal/service/agent"
	"github.com/Alpha200/ha-ai-tasker/internal/service/command"
	"github.com/Alpha200/ha-ai-tasker/internal/service/conversation"
	"github.com/Alpha200/ha-ai-tasker/internal/service/dispatcher"
	"github.com/Alpha200/ha-ai-tasker/internal/service/relevance"
	"github.com/Alpha200/ha-ai-tasker/internal/service/scheduler"
	"github.com/Alpha200/ha-ai-tasker/internal/storage/inmemory"
	"github.com/Alpha200/ha-ai-tasker/internal/storage/sqlite"
	"github.com/Alpha200/ha-ai-tasker/internal/transport/api"
	"github.com/Alpha200/ha-ai-tasker/internal/transport/matrix"
	"github.com/Alpha200/ha-ai-tasker/internal/transport/telegram"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
	"github.com/Alpha200/ha-ai-tasker/pkg/srv"
)

// app is everything a run needs. infra holds the services the dispatcher
// depends on, in start order.
type app struct {
	cfg        *config.AppConfig
	dispatcher *dispatcher.Dispatcher
	buffer     *conversation.Buffer
	infra      []srv.Service
}

// close shuts infra down without waiting for a signal.
func (a *app) close(ctx context.Context) {
	for i := len(a.infra) - 1; i >= 0; i-- {
		if err := a.infra[i].Shutdown(ctx); err != nil {
			log.FromCtx(ctx).Error().Err(err).Msgf("%T failed to shutdown", a.infra[i])
		}
	}
}

// NewServices wires the dispatcher to the configured transports, the HTTP
// ingress and the scheduler.
func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)

	a := newApp(ctx)
	services := append([]srv.Service{}, a.infra...)

	if a.cfg.TimerSchedule != "" {
		sched, err := scheduler.New(a.cfg.TimerSchedule, a.cfg.Location(), a.dispatcher)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize scheduler")
		}
		services = append(services, sched)
	}

	transports, err := initTransports(ctx, a)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize transports")
	}
	services = append(services, transports...)

	services = append(services, api.NewServer(api.Config{
		ListenAddr:  a.cfg.ListenAddr,
		ServiceName: a.cfg.ServiceName,
	}, a.dispatcher))

	return services
}

func newApp(ctx context.Context) *app {
	logger := log.FromCtx(ctx)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	policyCfg := config.NewPolicyConfig(ctx)
	llmCfg := config.NewLLMConfig(ctx)
	mcpCfg := config.NewMCPConfig(ctx)
	weatherCfg := config.NewWeatherConfig(ctx)
	loc := appCfg.Location()

	a := &app{cfg: appCfg}

	// 2. MCP servers
	var mcpSvc *mcp.Service
	if servers := mcp.ServersFromConfig(mcpCfg, appCfg.MemoryBackend == config.BackendMCP); len(servers) > 0 {
		mcpSvc = mcp.NewService(servers, mcp.NewPool())
		a.infra = append(a.infra, mcpSvc)
	}

	// 3. Storage
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	a.infra = append([]srv.Service{srv.NewCleanup(db.Close)}, a.infra...)

	var store core.MemoryStore
	switch appCfg.MemoryBackend {
	case config.BackendSQLite:
		store = sqlite.NewMemoriesRepo(db)
	case config.BackendMCP:
		if mcpSvc == nil {
			logger.Fatal().Msg("MEMORY_BACKEND=mcp needs MCP_SERVER_URL_MEMORY")
		}
		store = mcp.NewMemoryStore(mcpSvc.Server(mcp.ServerMemory), *mcpCfg)
	case config.BackendMemory:
		store = inmemory.New()
	default:
		logger.Fatal().Str("backend", appCfg.MemoryBackend).Msg("unknown memory backend")
	}

	deps := dispatcher.Deps{
		Store:    store,
		Location: location.NewTracker(),
		Journal:  sqlite.NewRunsRepo(db),
	}

	// 4. Context providers
	if weatherCfg.Enabled() {
		deps.Weather = weather.NewOpenMeteo(*weatherCfg)
	}
	if mcpSvc != nil && mcpCfg.MiscURL != "" {
		deps.Calendar = mcp.NewCalendar(mcpSvc.Server(mcp.ServerMisc), mcpCfg.CalendarTool)
	}

	// 5. Reasoning
	deps.Evaluator = relevance.NewRules(*policyCfg)
	if llmCfg.Enabled() {
		ai, err := llm.NewProvider(ctx, llmCfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
		}
		budget := llm.NewBudget(llmCfg.PromptTokenCap)
		deps.Responder = agent.NewAgent(ai, budget, appCfg.GetRuntimePath(), loc)
		if appCfg.Evaluator == config.EvaluatorLLM {
			deps.Evaluator = llm.NewEvaluator(ai, budget, loc)
		}
	} else if appCfg.Evaluator == config.EvaluatorLLM {
		logger.Warn().Msg("EVALUATOR=llm without a configured provider, using rules")
	}

	// 6. Conversation and dispatcher
	room, systemUser, selfUser := chatIdentity(ctx, appCfg)
	a.buffer = conversation.NewBuffer(appCfg.BufferCapacity, systemUser, selfUser)
	deps.Buffer = a.buffer

	a.dispatcher = dispatcher.New(appCfg, *policyCfg, room, deps)
	a.dispatcher.SetCommands(command.NewRouter(appCfg, store, a.dispatcher.Policy(), a.dispatcher, deps.Location))

	logger.Info().
		Str("memory", appCfg.MemoryBackend).
		Str("evaluator", appCfg.Evaluator).
		Str("transport", appCfg.ChatTransport).
		Msg("dispatcher ready")
	return a
}

// chatIdentity returns the room runs are serialized on, the account posting
// automation messages and the account the agent itself sends from.
func chatIdentity(ctx context.Context, cfg *config.AppConfig) (room, systemUser, selfUser string) {
	switch cfg.ChatTransport {
	case config.TransportMatrix:
		mCfg := config.NewMatrixConfig(ctx)
		systemUser = mCfg.SystemUsername
		if systemUser == "" {
			systemUser = mCfg.UserID
		}
		return mCfg.RoomID, systemUser, mCfg.UserID
	case config.TransportTelegram:
		tgCfg := config.NewTelegramConfig(ctx)
		systemUser = tgCfg.SystemUsername
		if systemUser == "" {
			systemUser = telegram.DefaultSystemUser
		}
		// Outgoing Telegram messages are buffered under the system name.
		return "", systemUser, systemUser
	}
	return "", "", ""
}

func initTransports(ctx context.Context, a *app) ([]srv.Service, error) {
	var services []srv.Service

	switch a.cfg.ChatTransport {
	case config.TransportMatrix:
		client, err := matrix.NewClient(config.NewMatrixConfig(ctx), a.dispatcher, a.buffer)
		if err != nil {
			return nil, err
		}
		a.dispatcher.SetSender(client.Sender())
		services = append(services, client)

	case config.TransportTelegram:
		bot, err := telegram.NewBot(ctx, config.NewTelegramConfig(ctx), a.dispatcher, a.buffer)
		if err != nil {
			return nil, err
		}
		a.dispatcher.SetSender(bot.Sender())
		services = append(services, bot)
	}

	return services, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}

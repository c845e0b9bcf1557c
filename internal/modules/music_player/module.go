package music_player

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/bot"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/events"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/tunebot/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/tunebot/internal/modules/music_player/presentation/discord"
)

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var (
	_ bot.ConfigurableModule = (*MusicPlayerModule)(nil)
	_ bot.ComponentModule    = (*MusicPlayerModule)(nil)
)

// MusicPlayerModule provides music playback commands and the controller.
type MusicPlayerModule struct {
	config            *Config
	commandHandlers   *discord.CommandHandlers
	componentHandlers *discord.ComponentHandlers
	autocomplete      *discord.AutocompleteHandler
	eventHandlers     *discord.EventHandlers
	lavalinkAdapter   *infrastructure.LavalinkAdapter
	store             *infrastructure.SQLiteStore

	// Event-driven components
	eventBus        *events.Bus
	playbackHandler *events.PlaybackEventHandler

	// Context for event handlers and startup recovery
	ctx    context.Context
	cancel context.CancelFunc
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"join":         m.commandHandlers.HandleJoin,
		"leave":        m.commandHandlers.HandleLeave,
		"play":         m.commandHandlers.HandlePlay,
		"stop":         m.commandHandlers.HandleStop,
		"pause":        m.commandHandlers.HandlePause,
		"resume":       m.commandHandlers.HandleResume,
		"skip":         m.commandHandlers.HandleSkip,
		"queue":        m.commandHandlers.HandleQueue,
		"repeat":       m.commandHandlers.HandleRepeat,
		"controller":   m.commandHandlers.HandleController,
		"musicchannel": m.commandHandlers.HandleMusicChannel,
	}
}

// ComponentHandlers returns the controller button and modal handlers.
func (m *MusicPlayerModule) ComponentHandlers() map[string]bot.InteractionHandler {
	return m.componentHandlers.Handlers()
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.handleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.handleVoiceStateUpdate(s, event)
		},
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			m.handleInteractionCreate(s, i)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init wires the module. The session must be connected.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil || deps.Session.State == nil || deps.Session.State.User == nil {
		return fmt.Errorf("music_player requires a connected session")
	}
	if m.config == nil {
		return fmt.Errorf("music_player config not loaded")
	}

	botID, err := snowflake.Parse(deps.Session.State.User.ID)
	if err != nil {
		return err
	}

	// Create cancellable context for event handlers
	m.ctx, m.cancel = context.WithCancel(context.Background())

	// Create event bus (needed by Lavalink adapter for publishing events)
	m.eventBus = events.NewBus(events.DefaultEventBufferSize)

	lavalinkAdapter, err := infrastructure.NewLavalinkAdapter(
		deps.Session,
		infrastructure.LavalinkConfig{
			Address:  m.config.LavalinkAddress,
			Password: m.config.LavalinkPassword,
			Secure:   m.config.LavalinkSecure,
		},
	)
	if err != nil {
		return err
	}
	lavalinkAdapter.SetEventPublisher(m.eventBus)
	m.lavalinkAdapter = lavalinkAdapter

	store, err := infrastructure.NewSQLiteStore(m.ctx, m.config.DatabasePath)
	if err != nil {
		lavalinkAdapter.Close()
		return err
	}
	m.store = store

	// Create infrastructure
	queues := infrastructure.NewMemoryQueueStore()
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session)
	transport := infrastructure.NewDiscordMessageTransport(
		deps.Session,
		discord.RenderController,
		m.config.ControllerEditInterval,
	)

	var provider ports.MediaProvider = lavalinkAdapter
	if m.config.MediaProvider == MediaProviderYtdlp {
		provider = infrastructure.NewYtdlpProvider()
	}

	// Create services
	voices := usecases.NewVoiceRegistry(lavalinkAdapter, voiceState)
	controller := usecases.NewControllerSync(store, transport, queues, voices)
	watchdog := usecases.NewWatchdog(m.config.IdleTimeout, voices, voiceState, controller)
	playback := usecases.NewPlaybackService(
		queues,
		voices,
		usecases.NewStreamResolver(provider),
		controller,
		watchdog,
	)
	watchdog.SetDisconnector(playback)
	queue := usecases.NewQueueService(queues, controller)
	autocomplete := usecases.NewAutocompleteService(infrastructure.NewYouTubeSearch())
	voiceEvents := usecases.NewVoiceEventService(botID, voices, voiceState, watchdog, playback)

	m.playbackHandler = events.NewPlaybackEventHandler(playback.OnPlaybackFinished, m.eventBus)
	m.playbackHandler.Start(m.ctx)

	// Create presentation handlers
	svc := discord.Services{
		Voices:     voices,
		Playback:   playback,
		Queue:      queue,
		Controller: controller,
	}
	m.commandHandlers = discord.NewCommandHandlers(svc)
	m.componentHandlers = discord.NewComponentHandlers(svc)
	m.autocomplete = discord.NewAutocompleteHandler(autocomplete)
	m.eventHandlers = discord.NewEventHandlers(voiceEvents)

	if err := controller.Load(m.ctx); err != nil {
		slog.Error("failed to load controller state", "error", err)
	}
	go controller.RestoreAll(m.ctx)

	slog.Info("music_player module initialized",
		"media_provider", m.config.MediaProvider,
		"idle_timeout", m.config.IdleTimeout,
	)

	return nil
}

// Shutdown cleans up module resources.
func (m *MusicPlayerModule) Shutdown() error {
	// Cancel context first to signal event handlers to stop
	if m.cancel != nil {
		m.cancel()
	}
	if m.playbackHandler != nil {
		m.playbackHandler.Stop()
	}

	// Close event bus
	if m.eventBus != nil {
		m.eventBus.Close()
	}

	// Close Lavalink connection
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.Close()
	}

	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

// Event handlers.

func (m *MusicPlayerModule) handleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceServerUpdate(event)
	}
}

func (m *MusicPlayerModule) handleVoiceStateUpdate(
	s *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceStateUpdate(event)
	}
	if m.eventHandlers != nil {
		m.eventHandlers.HandleVoiceStateUpdate(s, event)
	}
}

func (m *MusicPlayerModule) handleInteractionCreate(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	if i.Type != discordgo.InteractionApplicationCommandAutocomplete || m.autocomplete == nil {
		return
	}

	if i.ApplicationCommandData().Name == "play" {
		m.autocomplete.HandlePlay(s, i)
	}
}

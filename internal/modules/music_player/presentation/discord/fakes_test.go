package discord

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
	"github.com/sglre6355/tunebot/internal/modules/music_player/infrastructure"
)

const (
	testGuildID        snowflake.ID = 1
	testTextChannelID  snowflake.ID = 2
	testUserID         snowflake.ID = 3
	testVoiceChannelID snowflake.ID = 10
)

type fakeSession struct {
	mu        sync.Mutex
	guildID   snowflake.ID
	channelID snowflake.ID
	connected bool
	playing   string
	paused    bool
	volume    int
}

func (s *fakeSession) GuildID() snowflake.ID { return s.guildID }

func (s *fakeSession) ChannelID() snowflake.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

func (s *fakeSession) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSession) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing != "" && !s.paused
}

func (s *fakeSession) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *fakeSession) Play(_ context.Context, streamRef string, _ uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = streamRef
	s.paused = false
	return nil
}

func (s *fakeSession) Pause(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	return nil
}

func (s *fakeSession) Resume(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	return nil
}

func (s *fakeSession) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = ""
	s.paused = false
	return nil
}

func (s *fakeSession) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *fakeSession) SetVolume(_ context.Context, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = percent
	return nil
}

func (s *fakeSession) MoveTo(_ context.Context, channelID snowflake.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelID = channelID
	return nil
}

func (s *fakeSession) Disconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

type fakeConnector struct {
	sessions []*fakeSession
}

func (c *fakeConnector) Connect(_ context.Context, guildID, channelID snowflake.ID) (ports.VoiceSession, error) {
	session := &fakeSession{guildID: guildID, channelID: channelID, connected: true, volume: 100}
	c.sessions = append(c.sessions, session)
	return session, nil
}

type fakeVoiceState struct {
	channels map[snowflake.ID]snowflake.ID // user -> voice channel
}

func (v *fakeVoiceState) UserVoiceChannel(_, userID snowflake.ID) (snowflake.ID, bool) {
	channelID, ok := v.channels[userID]
	return channelID, ok
}

func (v *fakeVoiceState) HumanCount(_, channelID snowflake.ID) int {
	n := 0
	for _, c := range v.channels {
		if c == channelID {
			n++
		}
	}
	return n
}

type fakeProvider struct {
	err error
}

func (p *fakeProvider) Lookup(_ context.Context, reference string) (*ports.MediaInfo, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &ports.MediaInfo{
		ID:         "abc",
		Title:      "Song abc",
		StreamURL:  "stream-abc",
		WebpageURL: "https://www.youtube.com/watch?v=abc",
		Duration:   3 * time.Minute,
	}, nil
}

type fakeTransport struct {
	mu    sync.Mutex
	sent  []snowflake.ID
	edits int
}

func (t *fakeTransport) SendController(_ context.Context, channelID snowflake.ID, _ domain.RenderedState) (snowflake.ID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, channelID)
	return snowflake.ID(100 + len(t.sent)), nil
}

func (t *fakeTransport) EditController(context.Context, domain.ControllerRecord, domain.RenderedState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.edits++
	return nil
}

func (t *fakeTransport) FetchMessage(context.Context, snowflake.ID, snowflake.ID) error { return nil }

func (t *fakeTransport) DeleteMessage(context.Context, snowflake.ID, snowflake.ID) error { return nil }

func (t *fakeTransport) SendNotice(context.Context, snowflake.ID, string) error { return nil }

type fakeStore struct {
	mu     sync.Mutex
	values map[string]string
}

func (s *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *fakeStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *fakeStore) GetAll(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make(map[string]string, len(s.values))
	for k, v := range s.values {
		all[k] = v
	}
	return all, nil
}

type noopTimer struct{}

func (noopTimer) StartTimer(snowflake.ID) {}
func (noopTimer) ClearTimer(snowflake.ID) {}

// testEnv wires real use cases to fakes at the port boundary.
type testEnv struct {
	svc        Services
	connector  *fakeConnector
	voiceState *fakeVoiceState
	provider   *fakeProvider
	transport  *fakeTransport
	queues     *infrastructure.MemoryQueueStore
}

func newTestEnv() *testEnv {
	env := &testEnv{
		connector:  &fakeConnector{},
		voiceState: &fakeVoiceState{channels: map[snowflake.ID]snowflake.ID{testUserID: testVoiceChannelID}},
		provider:   &fakeProvider{},
		transport:  &fakeTransport{},
		queues:     infrastructure.NewMemoryQueueStore(),
	}

	voices := usecases.NewVoiceRegistry(env.connector, env.voiceState)
	controller := usecases.NewControllerSync(
		&fakeStore{values: make(map[string]string)},
		env.transport,
		env.queues,
		voices,
	)
	resolver := usecases.NewStreamResolver(env.provider)

	env.svc = Services{
		Voices:     voices,
		Playback:   usecases.NewPlaybackService(env.queues, voices, resolver, controller, noopTimer{}),
		Queue:      usecases.NewQueueService(env.queues, controller),
		Controller: controller,
	}
	return env
}

// session returns the most recently connected fake session.
func (e *testEnv) session() *fakeSession {
	if len(e.connector.sessions) == 0 {
		return nil
	}
	return e.connector.sessions[len(e.connector.sessions)-1]
}

var errProviderDown = errors.New("provider down")

func member() *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: testUserID.String()}}
}

func commandInteraction(name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   testGuildID.String(),
			ChannelID: testTextChannelID.String(),
			Member:    member(),
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

func queryOption(value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "query",
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func buttonInteraction(customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionMessageComponent,
			GuildID:   testGuildID.String(),
			ChannelID: testTextChannelID.String(),
			Member:    member(),
			Data: discordgo.MessageComponentInteractionData{
				CustomID:      customID,
				ComponentType: discordgo.ButtonComponent,
			},
		},
	}
}

func modalInteraction(value string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionModalSubmit,
			GuildID:   testGuildID.String(),
			ChannelID: testTextChannelID.String(),
			Member:    member(),
			Data: discordgo.ModalSubmitInteractionData{
				CustomID: CustomIDAddSongModal,
				Components: []discordgo.MessageComponent{
					&discordgo.ActionsRow{
						Components: []discordgo.MessageComponent{
							&discordgo.TextInput{CustomID: CustomIDSongInput, Value: value},
						},
					},
				},
			},
		},
	}
}
